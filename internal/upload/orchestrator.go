package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mediactl/internal/metrics"
	"github.com/desertthunder/mediactl/internal/models"
	"github.com/desertthunder/mediactl/internal/services"
	"github.com/desertthunder/mediactl/internal/shared"
)

// API is the subset of [services.Client] an upload needs.
type API interface {
	GetMedia(ctx context.Context, id string) (*models.MediaItem, error)
	CreateMedia(ctx context.Context, create models.MediaCreate) (*models.MediaItem, error)
	GetUploadEndpoint(ctx context.Context, id string) (*models.UploadEndpoint, error)
	Transfer(ctx context.Context, tr services.TransferRequest) error
	PatchMedia(ctx context.Context, id string, fields models.Fields) (*models.MediaItem, error)
}

// Journal records sessions as they change phase.
type Journal interface {
	Save(record *models.UploadRecord) error
}

// Options configures an [Orchestrator].
type Options struct {
	ChannelID string
	// TransferMethod is services.TransferPOST (default) or services.TransferPUT.
	TransferMethod string
	Policy         Policy
	Clock          shared.Clock
	Logger         *log.Logger
	Metrics        *metrics.Metrics
	Journal        Journal
	NewID          func() string
}

// Orchestrator runs one upload session at a time.
type Orchestrator struct {
	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	api       API
	opts      Options
	logger    *log.Logger
	session   Session
	changed   chan struct{}
	observers []func(Session)
	polls     map[shared.Timer]struct{}
	closed    bool
	wg        sync.WaitGroup
}

// NewOrchestrator creates an orchestrator with no session. Effects run under a
// child of ctx that [Orchestrator.Close] cancels.
func NewOrchestrator(ctx context.Context, api API, opts Options) *Orchestrator {
	if opts.Clock == nil {
		opts.Clock = shared.NewClock()
	}
	if opts.NewID == nil {
		opts.NewID = shared.GenerateID
	}
	if opts.Policy.PollInterval <= 0 {
		defaults := DefaultPolicy()
		defaults.Defaults = opts.Policy.Defaults
		opts.Policy = defaults
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.DiscardLogger()
	}

	ctx, cancel := context.WithCancel(ctx)
	return &Orchestrator{
		ctx:     ctx,
		cancel:  cancel,
		api:     api,
		opts:    opts,
		logger:  shared.WithLogger(logger, "component", "upload"),
		changed: make(chan struct{}),
		polls:   map[shared.Timer]struct{}{},
	}
}

// Select chooses file and returns the id of the session it belongs to.
func (o *Orchestrator) Select(file *File) string {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.dispatch(FileSelected{SessionID: o.opts.NewID(), File: file, Now: o.opts.Clock.Now()})
	return o.session.ID
}

// Attach starts a session for an existing item so its endpoint can be resolved
// before a file is chosen.
func (o *Orchestrator) Attach(ctx context.Context, itemID string) error {
	item, err := o.api.GetMedia(ctx, itemID)
	if err != nil {
		return fmt.Errorf("failed to load item %s: %w", itemID, err)
	}
	fields, err := models.ToFields(item)
	if err != nil {
		return err
	}
	fields["id"] = itemID

	o.mu.Lock()
	defer o.mu.Unlock()
	o.dispatch(ItemAttached{SessionID: o.opts.NewID(), Item: fields})
	return nil
}

// Edit merges fields into the draft.
func (o *Orchestrator) Edit(fields models.Fields) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session.ID == "" {
		return shared.ErrNoSession
	}
	o.dispatch(DraftEdited{SessionID: o.session.ID, Fields: fields})
	return nil
}

// Publish sends the draft. It fails with [shared.ErrPublishNotAllowed] until the
// transfer has succeeded, and while a publish is in flight or done.
func (o *Orchestrator) Publish() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session.ID == "" {
		return shared.ErrNoSession
	}
	if !o.session.CanPublish() {
		return fmt.Errorf("%w (phase %s)", shared.ErrPublishNotAllowed, o.session.Phase())
	}
	o.dispatch(PublishRequested{SessionID: o.session.ID})
	return nil
}

// RetryTransfer restarts a failed transfer.
func (o *Orchestrator) RetryTransfer() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session.ID == "" {
		return shared.ErrNoSession
	}
	if o.session.Transfer != TransferFailed {
		return fmt.Errorf("%w: transfer has not failed", shared.ErrInvalidInput)
	}
	o.dispatch(TransferRetried{SessionID: o.session.ID})
	return nil
}

// Session returns a snapshot of the current session.
func (o *Orchestrator) Session() Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session
}

// OnChange registers an observer, called with the orchestrator locked after
// every event that was applied.
func (o *Orchestrator) OnChange(fn func(Session)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = append(o.observers, fn)
}

// Await blocks until ready reports true for the session or ctx is done.
func (o *Orchestrator) Await(ctx context.Context, ready func(Session) bool) (Session, error) {
	for {
		o.mu.Lock()
		s, changed := o.session, o.changed
		o.mu.Unlock()

		if ready(s) {
			return s, nil
		}
		select {
		case <-ctx.Done():
			return s, ctx.Err()
		case <-changed:
		}
	}
}

// Close cancels outstanding work and waits for it to return.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	for t := range o.polls {
		if t.Stop() {
			o.wg.Done()
		}
	}
	clear(o.polls)
	o.mu.Unlock()

	o.cancel()
	o.wg.Wait()
}

// Wait blocks until every effect started so far has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Feed applies an event as if an effect had produced it.
func (o *Orchestrator) Feed(ev Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dispatch(ev)
}

// dispatch must be called with mu held.
func (o *Orchestrator) dispatch(ev Event) {
	if o.closed {
		return
	}

	prev := o.session
	next, effects := Transition(prev, ev, o.opts.Policy)
	if next.ID != prev.ID && prev.ID != "" {
		o.logger.Debug("session replaced", "previous", prev.ID, "session", next.ID)
	}
	switch ev.(type) {
	case FileSelected, ItemAttached:
	default:
		if ev.session() != prev.ID {
			o.opts.Metrics.IncStaleDiscard("upload")
			o.logger.Debug("discarding event for replaced session", "event", fmt.Sprintf("%T", ev), "session", ev.session(), "current", prev.ID)
			return
		}
	}
	o.session = next

	close(o.changed)
	o.changed = make(chan struct{})
	for _, fn := range o.observers {
		fn(next)
	}

	if phase := next.Phase(); phase != prev.Phase() || next.ID != prev.ID {
		o.phaseChanged(next, phase)
	}

	for _, effect := range effects {
		o.run(effect)
	}
}

func (o *Orchestrator) phaseChanged(s Session, phase Phase) {
	o.logger.Info("upload phase", "session", s.ID, "phase", phase, "item", s.ItemID)
	if phase.Terminal() {
		o.opts.Metrics.IncUpload(phase.String())
		if err := s.Err(); err != nil {
			o.logger.Error("upload stopped", "session", s.ID, "phase", phase, "error", err)
		}
	}

	if o.opts.Journal == nil || s.File == nil {
		return
	}
	record := &models.UploadRecord{
		ID:          s.ID,
		FileName:    s.File.Name,
		FileSize:    s.File.Size,
		ItemID:      s.ItemID,
		EndpointURL: s.Endpoint,
		Phase:       phase.String(),
		Progress:    s.Progress,
	}
	if err := s.Err(); err != nil {
		record.Error = err.Error()
	}
	if err := o.opts.Journal.Save(record); err != nil {
		o.logger.Warn("failed to journal upload", "session", s.ID, "error", err)
	}
}

// run starts an effect. Must be called with mu held.
func (o *Orchestrator) run(effect Effect) {
	switch e := effect.(type) {
	case CreateItem:
		o.spawn(func() { o.createItem(e) })
	case ResolveEndpoint:
		if e.Delay <= 0 {
			o.spawn(func() { o.resolveEndpoint(e) })
			return
		}
		o.opts.Metrics.IncEndpointPoll()
		o.logger.Debug("endpoint pending", "item", e.ItemID, "attempt", e.Attempt, "delay", e.Delay)
		o.wg.Add(1)
		var timer shared.Timer
		timer = o.opts.Clock.AfterFunc(e.Delay, func() {
			defer o.wg.Done()
			o.mu.Lock()
			defer o.mu.Unlock()
			delete(o.polls, timer)
			if o.closed || o.session.ID != e.SessionID {
				return
			}
			o.spawn(func() { o.resolveEndpoint(e) })
		})
		o.polls[timer] = struct{}{}
	case StartTransfer:
		o.spawn(func() { o.transfer(e) })
	case PatchItem:
		o.spawn(func() { o.patchItem(e) })
	}
}

func (o *Orchestrator) spawn(fn func()) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		fn()
	}()
}

func (o *Orchestrator) createItem(e CreateItem) {
	create := models.MediaCreate{
		ChannelID:   o.opts.ChannelID,
		Title:       e.Title,
		Description: e.Draft.String("description"),
	}

	item, err := o.api.CreateMedia(o.ctx, create)
	if err != nil {
		o.Feed(ItemCreateFailed{SessionID: e.SessionID, Err: err})
		return
	}

	fields, err := models.ToFields(item)
	if err != nil {
		o.Feed(ItemCreateFailed{SessionID: e.SessionID, Err: err})
		return
	}
	o.Feed(ItemCreated{SessionID: e.SessionID, Item: fields})
}

func (o *Orchestrator) resolveEndpoint(e ResolveEndpoint) {
	endpoint, err := o.api.GetUploadEndpoint(o.ctx, e.ItemID)
	switch {
	case err != nil:
		o.Feed(EndpointFailed{SessionID: e.SessionID, Err: err})
	case !endpoint.Ready():
		o.Feed(EndpointPending{SessionID: e.SessionID})
	default:
		o.Feed(EndpointResolved{SessionID: e.SessionID, URL: endpoint.URL})
	}
}

func (o *Orchestrator) transfer(e StartTransfer) {
	body, err := e.File.Open(o.ctx)
	if err != nil {
		o.Feed(TransferFinished{SessionID: e.SessionID, Err: fmt.Errorf("failed to open %s: %w", e.File.Name, err)})
		return
	}
	defer body.Close()

	err = o.api.Transfer(o.ctx, services.TransferRequest{
		URL:    e.URL,
		Body:   body,
		Name:   e.File.Name,
		Size:   e.File.Size,
		Method: o.opts.TransferMethod,
		Progress: func(sent, total int64) {
			o.Feed(TransferProgressed{SessionID: e.SessionID, Sent: sent, Total: total})
		},
	})
	o.Feed(TransferFinished{SessionID: e.SessionID, Err: err})
}

func (o *Orchestrator) patchItem(e PatchItem) {
	item, err := o.api.PatchMedia(o.ctx, e.ItemID, e.Fields)
	if err != nil {
		var fieldErrors map[string][]string
		var apiErr *services.APIError
		if errors.As(err, &apiErr) {
			fieldErrors = apiErr.FieldErrors()
		}
		o.Feed(PublishFinished{SessionID: e.SessionID, Err: err, FieldErrors: fieldErrors})
		return
	}

	fields, err := models.ToFields(item)
	if err != nil {
		o.logger.Warn("published item could not be read back", "session", e.SessionID, "item", e.ItemID, "error", err)
		fields = nil
	}
	o.Feed(PublishFinished{SessionID: e.SessionID, Item: fields})
}
