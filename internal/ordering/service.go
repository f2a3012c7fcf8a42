// Package ordering is the intent router: it turns inbound user events into
// cart and conversation changes plus a reply directive.
package ordering

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/xmtea/whatsapp-bot/internal/catalog"
	"github.com/xmtea/whatsapp-bot/internal/domain/cart"
	"github.com/xmtea/whatsapp-bot/internal/domain/conversation"
	"github.com/xmtea/whatsapp-bot/internal/domain/order"
	"github.com/xmtea/whatsapp-bot/internal/infrastructure/store"
	"github.com/xmtea/whatsapp-bot/internal/logging"
	"github.com/xmtea/whatsapp-bot/internal/metrics"
	"github.com/xmtea/whatsapp-bot/internal/pricing"
	"github.com/xmtea/whatsapp-bot/internal/session"
)

const (
	DefaultETAMinutes   = 45
	DefaultHistoryLimit = 5

	genericErrorMessage = "Bir hata oluştu, lütfen tekrar deneyin."
)

type Options struct {
	ETAMinutes   int
	HistoryLimit int
}

type Service struct {
	sessions   *session.Store
	catalog    catalog.Provider
	orders     *order.Register
	pricing    *pricing.Engine
	eventStore store.EventStoreInterface
	eta        int
	history    int
	now        func() time.Time
	log        *slog.Logger

	rules    []rule
	controls map[string]handlerFunc
}

func NewService(
	sessions *session.Store,
	provider catalog.Provider,
	orders *order.Register,
	engine *pricing.Engine,
	es store.EventStoreInterface,
	opts Options,
) *Service {
	if opts.ETAMinutes <= 0 {
		opts.ETAMinutes = DefaultETAMinutes
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	s := &Service{
		sessions:   sessions,
		catalog:    provider,
		orders:     orders,
		pricing:    engine,
		eventStore: es,
		eta:        opts.ETAMinutes,
		history:    opts.HistoryLimit,
		now:        time.Now,
		log:        logging.New("ordering"),
	}
	s.rules = s.buildRules()
	s.controls = s.buildControls()
	return s
}

// HandleEvent applies one user event and returns the reply. It never fails:
// errors become an Error directive and leave the session as it was.
func (s *Service) HandleEvent(ctx context.Context, userID string, ev Event) Directive {
	var d Directive
	err := s.sessions.Update(ctx, userID, func(sess *session.Session) error {
		var herr error
		d, herr = s.dispatch(ctx, sess, ev)
		return herr
	})
	if err != nil {
		s.log.Error("failed to handle event", "user_id", userID, "kind", ev.Kind, "id", ev.ID, "error", err)
		d = errorDirective(genericErrorMessage)
	}

	metrics.Directives.WithLabelValues(string(d.Kind)).Inc()
	return d
}

func (s *Service) dispatch(ctx context.Context, sess *session.Session, ev Event) (Directive, error) {
	for _, r := range s.rules {
		if r.match(sess, ev) {
			s.log.Debug("rule matched", "rule", r.name, "user_id", sess.UserID, "phase", sess.State.CurrentPhase())
			return r.handle(ctx, sess, ev)
		}
	}
	return mainMenu(), nil
}

// apply runs a transition and reports whether it was accepted. A rejected
// transition is not an error for the user; the caller shows the main menu.
func (s *Service) apply(sess *session.Session, trigger conversation.Trigger) bool {
	if err := sess.State.Apply(trigger); err != nil {
		s.log.Info("transition rejected", "user_id", sess.UserID, "phase", sess.State.CurrentPhase(), "trigger", trigger)
		return false
	}
	return true
}

func (s *Service) handleControl(ctx context.Context, sess *session.Session, ev Event) (Directive, error) {
	return s.controls[ev.ID](ctx, sess, ev)
}

// ============================================
// Menus
// ============================================

func (s *Service) showMainMenu(context.Context, *session.Session, Event) (Directive, error) {
	return mainMenu(), nil
}

func (s *Service) showHelp(context.Context, *session.Session, Event) (Directive, error) {
	return Directive{Kind: KindHelp}, nil
}

func (s *Service) showRestaurants(ctx context.Context, _ *session.Session, _ Event) (Directive, error) {
	businesses, err := s.catalog.Businesses(ctx)
	if err != nil {
		return Directive{}, err
	}
	return Directive{Kind: KindRestaurantList, Businesses: businesses}, nil
}

func (s *Service) showFeatured(ctx context.Context, _ *session.Session, _ Event) (Directive, error) {
	businesses, err := s.catalog.Featured(ctx)
	if err != nil {
		return Directive{}, err
	}
	return Directive{Kind: KindFeaturedList, Businesses: businesses}, nil
}

func (s *Service) showCampaigns(ctx context.Context, _ *session.Session, _ Event) (Directive, error) {
	businesses, err := s.catalog.Campaigns(ctx)
	if err != nil {
		return Directive{}, err
	}
	return Directive{Kind: KindCampaignList, Businesses: businesses}, nil
}

func (s *Service) handleKeyword(ctx context.Context, sess *session.Session, ev Event) (Directive, error) {
	intent, ok := MatchKeyword(ev.Body)
	if !ok {
		return mainMenu(), nil
	}
	switch intent {
	case KindRestaurantList:
		return s.showRestaurants(ctx, sess, ev)
	case KindCampaignList:
		return s.showCampaigns(ctx, sess, ev)
	case KindFeaturedList:
		return s.showFeatured(ctx, sess, ev)
	case KindCartView:
		return s.showCart(ctx, sess, ev)
	case KindHelp:
		return s.showHelp(ctx, sess, ev)
	default:
		return mainMenu(), nil
	}
}

// handleUnknownSelection resolves ids that carry no known prefix but name a
// business of the remote menu. Anything else falls back to the main menu.
func (s *Service) handleUnknownSelection(ctx context.Context, sess *session.Session, ev Event) (Directive, error) {
	if !ev.IsSelection() || ev.ID == "" {
		return mainMenu(), nil
	}
	if _, err := s.catalog.Business(ctx, ev.ID); err == nil {
		return s.handleSelectBusiness(ctx, sess, ev)
	}
	s.log.Info("unknown selection", "user_id", sess.UserID, "id", ev.ID)
	return mainMenu(), nil
}

// ============================================
// Browsing
// ============================================

func (s *Service) handleSelectBusiness(ctx context.Context, sess *session.Session, ev Event) (Directive, error) {
	b, err := s.catalog.Business(ctx, ev.ID)
	if errors.Is(err, catalog.ErrNotFound) {
		return Directive{Kind: KindNotFound, Message: "Restoran bulunamadı."}, nil
	}
	if err != nil {
		return Directive{}, err
	}

	if !s.apply(sess, conversation.TriggerSelectBusiness) {
		return mainMenu(), nil
	}
	sess.State.SelectedBusinessID = b.ID
	return s.categoryList(ctx, b)
}

func (s *Service) categoryList(ctx context.Context, b catalog.Business) (Directive, error) {
	categories, err := s.catalog.Categories(ctx, b.ID)
	if err != nil {
		return Directive{}, err
	}
	return Directive{Kind: KindCategoryList, Business: &b, Categories: categories}, nil
}

func (s *Service) handleSelectCategory(ctx context.Context, _ *session.Session, ev Event) (Directive, error) {
	products, err := s.catalog.CategoryProducts(ctx, ev.ID)
	if errors.Is(err, catalog.ErrNotFound) {
		return Directive{Kind: KindNotFound, Message: "Kategori bulunamadı."}, nil
	}
	if err != nil {
		return Directive{}, err
	}

	d := Directive{Kind: KindProductList, Products: products}
	if c, err := s.catalog.Category(ctx, ev.ID); err == nil {
		d.Category = &c
	} else {
		d.Category = &catalog.Category{ID: ev.ID, Title: strings.TrimPrefix(ev.ID, categoryPrefix)}
	}
	return d, nil
}

func (s *Service) handleSelectProduct(ctx context.Context, sess *session.Session, ev Event) (Directive, error) {
	p, err := s.catalog.ProductByID(ctx, ev.ID)
	if errors.Is(err, catalog.ErrNotFound) {
		return Directive{Kind: KindProductNotFound, Message: "Ürün bulunamadı."}, nil
	}
	if err != nil {
		return Directive{}, err
	}

	if !s.apply(sess, conversation.TriggerAddProduct) {
		return mainMenu(), nil
	}
	sess.Cart.AddItem(p.ID, p.Name, p.Price)

	var qty int
	for _, it := range sess.Cart.Items {
		if it.ProductID == p.ID {
			qty = it.Quantity
		}
	}
	s.record(ctx, cart.AggregateID(sess.UserID), cart.AggregateType, cart.EventItemAdded, cart.ItemAddedToCart{
		UserID:    sess.UserID,
		ProductID: p.ID,
		Quantity:  qty,
		UnitPrice: p.Price,
		AddedAt:   s.now(),
	})
	return s.cartView(sess), nil
}

// ============================================
// Cart
// ============================================

func (s *Service) cartView(sess *session.Session) Directive {
	if sess.Cart.IsEmpty() {
		return Directive{Kind: KindCartEmpty}
	}
	summary := s.pricing.Summarize(sess.Cart.Items)
	return Directive{Kind: KindCartView, Summary: summary, Total: summary.Subtotal}
}

func (s *Service) showCart(_ context.Context, sess *session.Session, _ Event) (Directive, error) {
	return s.cartView(sess), nil
}

// handleContinue goes back to the selected restaurant's categories
func (s *Service) handleContinue(ctx context.Context, sess *session.Session, _ Event) (Directive, error) {
	if sess.State.SelectedBusinessID == "" {
		return mainMenu(), nil
	}
	b, err := s.catalog.Business(ctx, sess.State.SelectedBusinessID)
	if err != nil {
		return mainMenu(), nil
	}
	return s.categoryList(ctx, b)
}

func (s *Service) handleClearCart(ctx context.Context, sess *session.Session, _ Event) (Directive, error) {
	if !s.apply(sess, conversation.TriggerClearCart) {
		return mainMenu(), nil
	}
	s.reset(ctx, sess, "cleared")
	return Directive{Kind: KindCartCleared}, nil
}

func (s *Service) handleCheckout(_ context.Context, sess *session.Session, _ Event) (Directive, error) {
	if sess.Cart.IsEmpty() {
		return Directive{Kind: KindCartEmpty}, nil
	}
	if !s.apply(sess, conversation.TriggerCheckout) {
		return mainMenu(), nil
	}
	return Directive{Kind: KindAskAddress}, nil
}

// ============================================
// Checkout
// ============================================

func (s *Service) handleAddress(_ context.Context, sess *session.Session, ev Event) (Directive, error) {
	address := strings.TrimSpace(ev.Body)
	if address == "" {
		return Directive{Kind: KindAskAddress}, nil
	}
	if !s.apply(sess, conversation.TriggerProvideAddress) {
		return mainMenu(), nil
	}
	sess.State.PendingAddress = address

	summary := s.pricing.Summarize(sess.Cart.Items)
	return Directive{Kind: KindPaymentMethods, Summary: summary, Total: summary.Subtotal}, nil
}

func (s *Service) handlePayment(ctx context.Context, sess *session.Session, ev Event) (Directive, error) {
	method := paymentIDs[ev.ID]

	if sess.State.CurrentPhase() != conversation.PhaseAwaitingPayment {
		s.log.Info("payment outside checkout", "user_id", sess.UserID, "phase", sess.State.CurrentPhase())
		return mainMenu(), nil
	}
	if sess.Cart.IsEmpty() {
		return Directive{Kind: KindCartEmpty}, nil
	}

	orderID, err := s.orders.NewOrderID(ctx)
	if err != nil {
		return Directive{}, err
	}
	if !s.apply(sess, conversation.TriggerSelectPayment) {
		return mainMenu(), nil
	}

	summary := s.pricing.Summarize(sess.Cart.Items)
	sess.State.PendingPaymentMethod = string(method)
	sess.Pending = &order.Pending{
		OrderID:       orderID,
		UserID:        sess.UserID,
		BusinessID:    sess.State.SelectedBusinessID,
		Items:         sess.Cart.Snapshot(),
		Total:         summary.Subtotal,
		DeliveryFee:   summary.DeliveryFee,
		Address:       sess.State.PendingAddress,
		PaymentMethod: method,
		CreatedAt:     s.now().Truncate(order.TimestampPrecision),
	}
	s.log.Info("pending order created", "user_id", sess.UserID, "order_id", orderID, "total", summary.Subtotal)

	return Directive{
		Kind:    KindOrderSummary,
		Summary: summary,
		Total:   summary.Subtotal,
		Pending: sess.Pending,
		OrderID: orderID,
	}, nil
}

func (s *Service) handleConfirm(ctx context.Context, sess *session.Session, _ Event) (Directive, error) {
	if sess.Pending == nil || !conversation.CanApply(sess.State.CurrentPhase(), conversation.TriggerConfirm) {
		s.log.Info("confirm without pending order", "user_id", sess.UserID, "phase", sess.State.CurrentPhase())
		return mainMenu(), nil
	}

	o, err := s.orders.Finalize(ctx, *sess.Pending)
	if err != nil {
		// session is left untouched so the customer can confirm again
		return Directive{}, err
	}
	metrics.OrdersFinalized.Inc()

	s.apply(sess, conversation.TriggerConfirm)
	sess.Cart.Clear()
	sess.State.Reset()
	sess.Pending = nil

	return Directive{Kind: KindOrderConfirmed, Order: o, OrderID: o.ID, Total: o.Total, ETAMinutes: s.eta}, nil
}

func (s *Service) handleCancel(ctx context.Context, sess *session.Session, _ Event) (Directive, error) {
	if !s.apply(sess, conversation.TriggerCancel) {
		return mainMenu(), nil
	}
	if sess.Pending != nil {
		s.log.Info("pending order discarded", "user_id", sess.UserID, "order_id", sess.Pending.OrderID)
	}
	s.reset(ctx, sess, "order_cancelled")
	return Directive{Kind: KindOrderCancelled}, nil
}

// reset empties the session and records the cart clear when there was one
func (s *Service) reset(ctx context.Context, sess *session.Session, reason string) {
	hadItems := !sess.Cart.IsEmpty()
	sess.Reset()
	if hadItems {
		s.record(ctx, cart.AggregateID(sess.UserID), cart.AggregateType, cart.EventCartCleared, cart.CartCleared{
			UserID:    sess.UserID,
			Reason:    reason,
			ClearedAt: s.now(),
		})
	}
}

// ============================================
// Order history
// ============================================

func (s *Service) showOrderHistory(ctx context.Context, sess *session.Session, _ Event) (Directive, error) {
	orders, err := s.orders.ListByUser(ctx, sess.UserID, s.history)
	if err != nil {
		return Directive{}, err
	}
	return Directive{Kind: KindOrderHistory, Orders: orders}, nil
}

func (s *Service) showOrderTracking(ctx context.Context, sess *session.Session, _ Event) (Directive, error) {
	orders, err := s.orders.ListByUser(ctx, sess.UserID, 1)
	if err != nil {
		return Directive{}, err
	}
	d := Directive{Kind: KindOrderTracking}
	if len(orders) > 0 {
		d.Order = orders[0]
		d.OrderID = orders[0].ID
	}
	return d, nil
}

func (s *Service) record(ctx context.Context, aggregateID, aggregateType, eventType string, data any) {
	if s.eventStore == nil {
		return
	}
	if _, err := s.eventStore.Append(ctx, aggregateID, aggregateType, eventType, data); err != nil {
		s.log.Warn("failed to record event", "aggregate_id", aggregateID, "event", eventType, "error", err)
	}
}
