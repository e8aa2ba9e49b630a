package shopping

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dalfonso89/outdoor-companion-service/internal/logger"
	"github.com/dalfonso89/outdoor-companion-service/internal/models"
)

// FetchErrorMessage is the single user-visible message published when a
// marketplace fetch fails.
const FetchErrorMessage = "Failed to load items."

// ItemFetcher retrieves marketplace listings for a set of queries.
type ItemFetcher interface {
	FetchAll(ctx context.Context, queries []string) ([]models.Item, error)
}

// ItemConverter rewrites item prices into a target display currency.
type ItemConverter interface {
	Convert(ctx context.Context, items []models.Item, target string) []models.Item
}

type eventKind int

const (
	eventCurrencyChanged eventKind = iota
	eventClothingChanged
)

type event struct {
	kind     eventKind
	currency string
	clothing []string
}

type cycleKind int

const (
	cycleInitial cycleKind = iota
	cycleConvertOnly
	cycleRefresh
)

type cycleResult struct {
	generation uint64
	kind       cycleKind

	// source-currency originals, set by fetch cycles
	main        []models.Item
	recommended []models.Item
	clothing    []string

	convertedMain        []models.Item
	convertedRecommended []models.Item

	err error
}

// reconciliation is the controller-owned snapshot of source-currency items.
// It is only ever replaced wholesale by the run loop, never mutated
// field-by-field from outside it.
type reconciliation struct {
	initialized         bool
	originalMain        []models.Item
	originalRecommended []models.Item
	lastClothing        []string
	currency            string
}

// Controller keeps displayed prices consistent with the selected display
// currency while avoiding redundant marketplace fetches, and keeps the
// recommended items consistent with the latest assistant-derived clothing
// suggestions.
//
// All reconciliation state lives on a single run-loop goroutine; inputs
// arrive as events and in-flight cycles carry a generation number so only the
// latest requested cycle ever publishes ("latest value wins").
type Controller struct {
	fetcher     ItemFetcher
	converter   ItemConverter
	logger      *logger.Logger
	gearQueries []string
	queryLabel  string

	events  chan event
	results chan cycleResult
	closed  chan struct{}
	runDone chan struct{}

	started   atomic.Bool
	closeOnce sync.Once

	stateMutex sync.RWMutex
	published  models.ShoppingState

	subscribersMutex sync.Mutex
	subscribers      map[chan models.ShoppingState]struct{}
}

// NewController creates a new controller. Start must be called before events
// are delivered.
func NewController(fetcher ItemFetcher, converter ItemConverter, gearQueries []string, queryLabel string, logger *logger.Logger) *Controller {
	return &Controller{
		fetcher:     fetcher,
		converter:   converter,
		logger:      logger,
		gearQueries: gearQueries,
		queryLabel:  queryLabel,
		events:      make(chan event, 16),
		results:     make(chan cycleResult),
		closed:      make(chan struct{}),
		runDone:     make(chan struct{}),
		published: models.ShoppingState{
			Items:            []models.Item{},
			RecommendedItems: []models.Item{},
			Query:            queryLabel,
		},
		subscribers: make(map[chan models.ShoppingState]struct{}),
	}
}

// Start launches the run loop. The loop stops when ctx is canceled or Close
// is called. Repeated calls are no-ops.
func (controller *Controller) Start(ctx context.Context) {
	if !controller.started.CompareAndSwap(false, true) {
		return
	}
	go controller.run(ctx)
}

// CurrencyChanged delivers a new display-currency observation.
func (controller *Controller) CurrencyChanged(code string) {
	controller.deliver(event{kind: eventCurrencyChanged, currency: code})
}

// ClothingItemsChanged delivers a new assistant-derived clothing query list.
func (controller *Controller) ClothingItemsChanged(items []string) {
	clothing := append([]string(nil), items...)
	controller.deliver(event{kind: eventClothingChanged, clothing: clothing})
}

func (controller *Controller) deliver(ev event) {
	select {
	case controller.events <- ev:
	case <-controller.closed:
	}
}

// State returns the last published shopping state.
func (controller *Controller) State() models.ShoppingState {
	controller.stateMutex.RLock()
	defer controller.stateMutex.RUnlock()
	return controller.published
}

// Subscribe returns a channel receiving every published state. The channel
// is closed when the controller is closed; slow subscribers miss
// intermediate states rather than blocking the run loop.
func (controller *Controller) Subscribe() chan models.ShoppingState {
	subscription := make(chan models.ShoppingState, 4)
	controller.subscribersMutex.Lock()
	controller.subscribers[subscription] = struct{}{}
	controller.subscribersMutex.Unlock()
	return subscription
}

// Unsubscribe removes and closes a subscription channel.
func (controller *Controller) Unsubscribe(subscription chan models.ShoppingState) {
	controller.subscribersMutex.Lock()
	if _, ok := controller.subscribers[subscription]; ok {
		delete(controller.subscribers, subscription)
		close(subscription)
	}
	controller.subscribersMutex.Unlock()
}

// Close stops the run loop and cancels any in-flight cycle. No state is
// published after Close returns. Safe to call even if Start never ran.
func (controller *Controller) Close() {
	controller.closeOnce.Do(func() {
		close(controller.closed)
	})
	if controller.started.Load() {
		<-controller.runDone
	}
}

func (controller *Controller) run(ctx context.Context) {
	defer close(controller.runDone)
	defer controller.closeSubscribers()

	var (
		rec         reconciliation
		generation  uint64
		cycleCancel context.CancelFunc
	)

	cancelInFlight := func() {
		if cycleCancel != nil {
			cycleCancel()
			cycleCancel = nil
		}
	}
	defer cancelInFlight()

	for {
		select {
		case <-ctx.Done():
			return
		case <-controller.closed:
			return

		case ev := <-controller.events:
			switch ev.kind {
			case eventCurrencyChanged:
				if rec.initialized && ev.currency == rec.currency {
					continue
				}
				rec.currency = ev.currency
				generation++
				cancelInFlight()

				cycleCtx, cancel := context.WithCancel(ctx)
				cycleCancel = cancel

				if !rec.initialized {
					controller.publishLoading()
					go controller.runInitialCycle(cycleCtx, generation, rec.currency, append([]string(nil), rec.lastClothing...))
				} else {
					go controller.runConvertCycle(cycleCtx, generation, rec.currency, rec.originalMain, rec.originalRecommended)
				}

			case eventClothingChanged:
				if !rec.initialized {
					// No fetch has happened yet; remember the list so the
					// first cycle picks it up.
					rec.lastClothing = ev.clothing
					continue
				}
				if len(ev.clothing) == 0 || equalStrings(ev.clothing, rec.lastClothing) {
					continue
				}
				generation++
				cancelInFlight()

				cycleCtx, cancel := context.WithCancel(ctx)
				cycleCancel = cancel

				controller.publishLoading()
				go controller.runRefreshCycle(cycleCtx, generation, rec.currency, ev.clothing, rec.originalMain)
			}

		case result := <-controller.results:
			if result.generation != generation {
				// Superseded by a newer event; discard.
				continue
			}
			cycleCancel = nil

			if result.err != nil {
				switch classifyError(result.err) {
				case ErrorTypeCancelled:
					controller.logger.Debugf("Shopping cycle cancelled: %v", result.err)
					continue
				case ErrorTypeAuth:
					controller.logger.Errorf("Shopping fetch auth failure: %v", result.err)
				case ErrorTypeNetwork:
					controller.logger.Errorf("Shopping fetch network failure: %v", result.err)
				default:
					controller.logger.Errorf("Shopping fetch failed: %v", result.err)
				}
				errorState := controller.State()
				errorState.IsLoading = false
				errorState.Error = FetchErrorMessage
				controller.publish(errorState)
				continue
			}

			switch result.kind {
			case cycleInitial:
				rec.initialized = true
				rec.originalMain = result.main
				rec.originalRecommended = result.recommended
				rec.lastClothing = result.clothing
			case cycleRefresh:
				rec.originalRecommended = result.recommended
				rec.lastClothing = result.clothing
			}

			controller.publish(models.ShoppingState{
				IsLoading:        false,
				Items:            result.convertedMain,
				RecommendedItems: result.convertedRecommended,
				Query:            controller.queryLabel,
			})
		}
	}
}

// runInitialCycle fetches both lists, caches the source-currency originals,
// and converts them. An empty clothing list yields an empty recommended list
// without a fetch.
func (controller *Controller) runInitialCycle(ctx context.Context, generation uint64, target string, clothing []string) {
	main, err := controller.fetcher.FetchAll(ctx, controller.gearQueries)
	if err != nil {
		controller.report(ctx, cycleResult{generation: generation, kind: cycleInitial, err: err})
		return
	}

	recommended := []models.Item{}
	if len(clothing) > 0 {
		recommended, err = controller.fetcher.FetchAll(ctx, clothing)
		if err != nil {
			controller.report(ctx, cycleResult{generation: generation, kind: cycleInitial, err: err})
			return
		}
	}

	controller.report(ctx, cycleResult{
		generation:           generation,
		kind:                 cycleInitial,
		main:                 main,
		recommended:          recommended,
		clothing:             clothing,
		convertedMain:        controller.converter.Convert(ctx, main, target),
		convertedRecommended: controller.converter.Convert(ctx, recommended, target),
	})
}

// runConvertCycle re-runs only the converter against the cached originals.
func (controller *Controller) runConvertCycle(ctx context.Context, generation uint64, target string, main, recommended []models.Item) {
	controller.report(ctx, cycleResult{
		generation:           generation,
		kind:                 cycleConvertOnly,
		convertedMain:        controller.converter.Convert(ctx, main, target),
		convertedRecommended: controller.converter.Convert(ctx, recommended, target),
	})
}

// runRefreshCycle re-fetches only the recommended list for a changed clothing
// query list, then converts both lists at the last-known currency.
func (controller *Controller) runRefreshCycle(ctx context.Context, generation uint64, target string, clothing []string, main []models.Item) {
	recommended, err := controller.fetcher.FetchAll(ctx, clothing)
	if err != nil {
		controller.report(ctx, cycleResult{generation: generation, kind: cycleRefresh, err: err})
		return
	}

	controller.report(ctx, cycleResult{
		generation:           generation,
		kind:                 cycleRefresh,
		recommended:          recommended,
		clothing:             clothing,
		convertedMain:        controller.converter.Convert(ctx, main, target),
		convertedRecommended: controller.converter.Convert(ctx, recommended, target),
	})
}

func (controller *Controller) report(ctx context.Context, result cycleResult) {
	select {
	case controller.results <- result:
	case <-ctx.Done():
	case <-controller.closed:
	}
}

// publishLoading re-publishes the current state with the loading flag set,
// keeping previously displayed items visible.
func (controller *Controller) publishLoading() {
	loading := controller.State()
	loading.IsLoading = true
	loading.Error = ""
	controller.publish(loading)
}

func (controller *Controller) publish(state models.ShoppingState) {
	controller.stateMutex.Lock()
	controller.published = state
	controller.stateMutex.Unlock()

	controller.subscribersMutex.Lock()
	for subscription := range controller.subscribers {
		select {
		case subscription <- state:
		default:
		}
	}
	controller.subscribersMutex.Unlock()
}

func (controller *Controller) closeSubscribers() {
	controller.subscribersMutex.Lock()
	for subscription := range controller.subscribers {
		delete(controller.subscribers, subscription)
		close(subscription)
	}
	controller.subscribersMutex.Unlock()
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
