package upload

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/mediactl/internal/models"
	"github.com/desertthunder/mediactl/internal/shared"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func clip() *File {
	return &File{Name: "clip.mp4", Size: 100}
}

func countTransfers(effects []Effect) int {
	n := 0
	for _, e := range effects {
		if _, ok := e.(StartTransfer); ok {
			n++
		}
	}
	return n
}

// step applies events in order and collects every effect.
func step(t *testing.T, s Session, p Policy, events ...Event) (Session, []Effect) {
	t.Helper()
	var all []Effect
	for _, ev := range events {
		var effects []Effect
		s, effects = Transition(s, ev, p)
		if countTransfers(effects) > 0 {
			require.NotNil(t, s.File, "transfer started without a file")
			require.NotEmpty(t, s.Endpoint, "transfer started without an endpoint")
		}
		all = append(all, effects...)
	}
	return s, all
}

func TestTransition(t *testing.T) {
	p := DefaultPolicy()

	t.Run("file selection creates the item with a draft", func(t *testing.T) {
		s, effects := Transition(Session{}, FileSelected{SessionID: "s1", File: clip(), Now: now}, p)

		assert.Equal(t, "s1", s.ID)
		assert.Equal(t, PhaseFileChosen, s.Phase())
		require.Len(t, effects, 1)
		create, ok := effects[0].(CreateItem)
		require.True(t, ok)
		assert.Equal(t, "clip.mp4", create.Title)
		assert.Equal(t, true, s.Draft["downloadable"])
		assert.Equal(t, "2024-03-01T12:00:00Z", s.Draft["publishedAt"])
	})

	t.Run("empty file name is untitled", func(t *testing.T) {
		s, _ := Transition(Session{}, FileSelected{SessionID: "s1", File: &File{}, Now: now}, p)
		assert.Equal(t, "Untitled", s.Draft.String("title"))
	})

	t.Run("policy defaults layer over the draft", func(t *testing.T) {
		policy := p
		policy.Defaults = models.Fields{"downloadable": false}
		s, _ := Transition(Session{}, FileSelected{SessionID: "s1", File: clip(), Now: now}, policy)
		assert.Equal(t, false, s.Draft["downloadable"])
	})

	t.Run("transfer starts once when the file comes first", func(t *testing.T) {
		s, effects := step(t, Session{}, p,
			FileSelected{SessionID: "s1", File: clip(), Now: now},
			ItemCreated{SessionID: "s1", Item: models.Fields{"id": "42", "title": "server title"}},
			EndpointPending{SessionID: "s1"},
			EndpointResolved{SessionID: "s1", URL: "https://up/42"},
			EndpointResolved{SessionID: "s1", URL: "https://up/other"},
			TransferProgressed{SessionID: "s1", Sent: 50, Total: 100},
		)

		assert.Equal(t, 1, countTransfers(effects))
		assert.Equal(t, "https://up/42", s.Endpoint)
		assert.Equal(t, PhaseTransferring, s.Phase())
		assert.Equal(t, 0.5, s.Progress)
		assert.Equal(t, "clip.mp4", s.Draft.String("title"), "draft keys win over server fields")
	})

	t.Run("transfer starts once when the endpoint comes first", func(t *testing.T) {
		s, effects := step(t, Session{}, p,
			ItemAttached{SessionID: "s1", Item: models.Fields{"id": "42", "title": "Existing"}},
			EndpointResolved{SessionID: "s1", URL: "https://up/42"},
		)
		assert.Equal(t, 0, countTransfers(effects))
		assert.Equal(t, PhaseEndpointKnown, s.Phase())

		s, effects = step(t, s, p,
			FileSelected{SessionID: "s2", File: clip(), Now: now},
			EndpointResolved{SessionID: "s1", URL: "https://up/again"},
		)
		assert.Equal(t, 1, countTransfers(effects))
		assert.Equal(t, "s1", s.ID, "file joins the attached session")
		assert.Equal(t, "Existing", s.Draft.String("title"))
		for _, e := range effects {
			_, create := e.(CreateItem)
			assert.False(t, create, "no item is created for an attached session")
		}
	})

	t.Run("new file resets the session and ignores old events", func(t *testing.T) {
		s, _ := step(t, Session{}, p,
			FileSelected{SessionID: "s1", File: clip(), Now: now},
			ItemCreated{SessionID: "s1", Item: models.Fields{"id": "42"}},
		)

		s, effects := step(t, s, p,
			FileSelected{SessionID: "s2", File: &File{Name: "other.mov"}, Now: now},
			EndpointResolved{SessionID: "s1", URL: "https://up/42"},
		)

		assert.Equal(t, "s2", s.ID)
		assert.Empty(t, s.ItemID)
		assert.Empty(t, s.Endpoint)
		assert.Equal(t, 0, countTransfers(effects))
	})

	t.Run("pending endpoint backs off and gives up", func(t *testing.T) {
		policy := Policy{PollInterval: 100 * time.Millisecond, MaxPolls: 3, Backoff: 2, MaxInterval: 300 * time.Millisecond}
		s, _ := step(t, Session{}, policy,
			FileSelected{SessionID: "s1", File: clip(), Now: now},
			ItemCreated{SessionID: "s1", Item: models.Fields{"id": "42"}},
		)

		var delays []time.Duration
		for range 2 {
			var effects []Effect
			s, effects = Transition(s, EndpointPending{SessionID: "s1"}, policy)
			require.Len(t, effects, 1)
			delays = append(delays, effects[0].(ResolveEndpoint).Delay)
		}
		assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, delays)

		s, effects := Transition(s, EndpointPending{SessionID: "s1"}, policy)
		assert.Empty(t, effects)
		assert.ErrorIs(t, s.EndpointErr, shared.ErrEndpointNotReady)
		assert.Equal(t, PhaseFailed, s.Phase())
	})

	t.Run("unknown total is indeterminate", func(t *testing.T) {
		s, _ := step(t, Session{}, p,
			FileSelected{SessionID: "s1", File: &File{Name: "stream", Size: -1}, Now: now},
			ItemCreated{SessionID: "s1", Item: models.Fields{"id": "42"}},
			EndpointResolved{SessionID: "s1", URL: "https://up/42"},
			TransferProgressed{SessionID: "s1", Sent: 10, Total: -1},
		)
		assert.False(t, s.ProgressKnown)
	})

	t.Run("publish is gated on transfer success", func(t *testing.T) {
		s, _ := step(t, Session{}, p,
			FileSelected{SessionID: "s1", File: clip(), Now: now},
			ItemCreated{SessionID: "s1", Item: models.Fields{"id": "42"}},
			EndpointResolved{SessionID: "s1", URL: "https://up/42"},
		)

		s, effects := Transition(s, PublishRequested{SessionID: "s1"}, p)
		assert.Empty(t, effects)
		assert.Equal(t, PublishNotStarted, s.Publish)
		assert.False(t, s.CanPublish())

		s, _ = Transition(s, TransferFinished{SessionID: "s1"}, p)
		assert.True(t, s.CanPublish())
		assert.Equal(t, 1.0, s.Progress)

		s, _ = Transition(s, DraftEdited{SessionID: "s1", Fields: models.Fields{"description": "A clip"}}, p)
		s, effects = Transition(s, PublishRequested{SessionID: "s1"}, p)
		require.Len(t, effects, 1)
		patch := effects[0].(PatchItem)
		assert.Equal(t, "42", patch.Fields["id"])
		assert.Equal(t, "clip.mp4", patch.Fields["title"])
		assert.Equal(t, "A clip", patch.Fields["description"])
		assert.Equal(t, PhasePublishing, s.Phase())

		_, effects = Transition(s, PublishRequested{SessionID: "s1"}, p)
		assert.Empty(t, effects, "no second publish while in flight")
	})

	t.Run("publish failure keeps draft and field errors", func(t *testing.T) {
		s, _ := step(t, Session{}, p,
			FileSelected{SessionID: "s1", File: clip(), Now: now},
			ItemCreated{SessionID: "s1", Item: models.Fields{"id": "42"}},
			EndpointResolved{SessionID: "s1", URL: "https://up/42"},
			TransferFinished{SessionID: "s1"},
			DraftEdited{SessionID: "s1", Fields: models.Fields{"title": ""}},
			PublishRequested{SessionID: "s1"},
			PublishFinished{SessionID: "s1", Err: errors.New("bad request"), FieldErrors: map[string][]string{
				"title":    {"This field may not be blank."},
				"language": {"Invalid choice."},
			}},
		)

		assert.Equal(t, PhasePublishFailed, s.Phase())
		assert.Equal(t, "", s.Draft["title"])
		assert.Len(t, s.FieldErrors, 2)

		s, _ = Transition(s, DraftEdited{SessionID: "s1", Fields: models.Fields{"title": "Fixed"}}, p)
		assert.NotContains(t, s.FieldErrors, "title")
		assert.Contains(t, s.FieldErrors, "language")
		assert.True(t, s.CanPublish())

		s, _ = step(t, s, p,
			PublishRequested{SessionID: "s1"},
			PublishFinished{SessionID: "s1", Item: models.Fields{"title": "Fixed"}},
		)
		assert.Equal(t, PhasePublished, s.Phase())
		assert.Nil(t, s.FieldErrors)

		s2, _ := Transition(s, DraftEdited{SessionID: "s1", Fields: models.Fields{"title": "late"}}, p)
		assert.Equal(t, "Fixed", s2.Draft["title"], "draft is frozen after publish")
	})

	t.Run("failed transfer can be retried", func(t *testing.T) {
		s, effects := step(t, Session{}, p,
			FileSelected{SessionID: "s1", File: clip(), Now: now},
			ItemCreated{SessionID: "s1", Item: models.Fields{"id": "42"}},
			EndpointResolved{SessionID: "s1", URL: "https://up/42"},
			TransferFinished{SessionID: "s1", Err: errors.New("reset by peer")},
		)
		assert.Equal(t, 1, countTransfers(effects))
		assert.Equal(t, PhaseTransferFailed, s.Phase())
		assert.Error(t, s.Err())

		s, effects = Transition(s, TransferRetried{SessionID: "s1"}, p)
		assert.Equal(t, 1, countTransfers(effects))
		assert.Equal(t, PhaseTransferring, s.Phase())
		assert.NoError(t, s.TransferErr)
	})

	t.Run("item without id fails creation", func(t *testing.T) {
		s, effects := step(t, Session{}, p,
			FileSelected{SessionID: "s1", File: clip(), Now: now},
			ItemCreated{SessionID: "s1", Item: models.Fields{"title": "x"}},
		)
		assert.Equal(t, PhaseFailed, s.Phase())
		assert.Len(t, effects, 1)
	})
}

func TestPolicy(t *testing.T) {
	t.Run("Delay caps at max interval", func(t *testing.T) {
		p := DefaultPolicy()
		assert.Equal(t, 500*time.Millisecond, p.Delay(1))
		assert.Equal(t, 750*time.Millisecond, p.Delay(2))
		assert.Equal(t, 5*time.Second, p.Delay(50))
	})

	t.Run("Backoff below one is constant", func(t *testing.T) {
		p := Policy{PollInterval: time.Second, Backoff: 0.5}
		assert.Equal(t, time.Second, p.Delay(4))
	})

	t.Run("PolicyFromConfig", func(t *testing.T) {
		cfg := shared.DefaultConfig()
		p := PolicyFromConfig(cfg.Upload)
		assert.Equal(t, 500*time.Millisecond, p.PollInterval)
		assert.Equal(t, 120, p.MaxPolls)
		assert.Equal(t, true, p.Defaults["downloadable"])
	})

	t.Run("Phase names", func(t *testing.T) {
		assert.Equal(t, "published", PhasePublished.String())
		assert.Equal(t, "unknown", Phase(99).String())
		assert.True(t, PhaseFailed.Terminal())
		assert.False(t, PhaseTransferring.Terminal())
	})
}
