package ordering

import (
	"context"
	"strings"
	"unicode"

	"github.com/xmtea/whatsapp-bot/internal/domain/conversation"
	"github.com/xmtea/whatsapp-bot/internal/domain/order"
	"github.com/xmtea/whatsapp-bot/internal/session"
)

// Control ids sent back by list rows and reply buttons
const (
	ControlMainMenu   = "action_menu"
	ControlNewOrder   = "action_new_order"
	ControlViewCart   = "action_cart"
	ControlMyOrders   = "action_my_orders"
	ControlTrackOrder = "action_track_order"
	ControlHelp       = "action_help"
	ControlContact    = "action_contact"
	ControlAllList    = "menu_all"
	ControlFeatured   = "menu_featured"
	ControlCampaign   = "menu_campaign"
	ControlCartMenu   = "cart_menu"
	ControlContinue   = "cart_continue"
	ControlCheckout   = "cart_checkout"
	ControlClearCart  = "cart_clear"
	ControlConfirm    = "order_confirm"
	ControlCancel     = "order_cancel"
	ControlCancelAddr = "address_cancel"
	businessPrefix    = "business_"
	categoryPrefix    = "cat_"
	productPrefix     = "prod_"
)

// paymentIDs maps payment selection ids to methods. pay_* are the ids of the
// older three-button prompt.
var paymentIDs = map[string]order.PaymentMethod{
	"payment_cash":     order.PaymentCash,
	"payment_card":     order.PaymentCard,
	"payment_sodexo":   order.PaymentSodexo,
	"payment_multinet": order.PaymentMultinet,
	"pay_cash":         order.PaymentCash,
	"pay_card":         order.PaymentCard,
	"pay_meal":         order.PaymentMealCard,
}

type handlerFunc func(ctx context.Context, sess *session.Session, ev Event) (Directive, error)

// rule pairs a predicate with its handler. Rules are tried in order and the
// first match handles the event.
type rule struct {
	name   string
	match  func(sess *session.Session, ev Event) bool
	handle handlerFunc
}

func (s *Service) buildRules() []rule {
	return []rule{
		{"address", awaitingAddressText, s.handleAddress},
		{"control", s.isControl, s.handleControl},
		{"payment", isPaymentSelection, s.handlePayment},
		{"business", selectionWithPrefix(businessPrefix), s.handleSelectBusiness},
		{"category", selectionWithPrefix(categoryPrefix), s.handleSelectCategory},
		{"product", selectionWithPrefix(productPrefix), s.handleSelectProduct},
		{"keyword", isText, s.handleKeyword},
		{"fallback", always, s.handleUnknownSelection},
	}
}

func (s *Service) buildControls() map[string]handlerFunc {
	return map[string]handlerFunc{
		ControlMainMenu:   s.showMainMenu,
		ControlNewOrder:   s.showRestaurants,
		ControlAllList:    s.showRestaurants,
		ControlFeatured:   s.showFeatured,
		ControlCampaign:   s.showCampaigns,
		ControlViewCart:   s.showCart,
		ControlMyOrders:   s.showOrderHistory,
		ControlTrackOrder: s.showOrderTracking,
		ControlHelp:       s.showHelp,
		ControlContact:    s.showHelp,
		ControlContinue:   s.handleContinue,
		ControlCartMenu:   s.handleContinue,
		ControlCheckout:   s.handleCheckout,
		ControlClearCart:  s.handleClearCart,
		ControlConfirm:    s.handleConfirm,
		ControlCancel:     s.handleCancel,
		ControlCancelAddr: s.handleCancel,
	}
}

func awaitingAddressText(sess *session.Session, ev Event) bool {
	return ev.IsText() && sess.State.CurrentPhase() == conversation.PhaseAwaitingAddress
}

func (s *Service) isControl(_ *session.Session, ev Event) bool {
	if !ev.IsSelection() {
		return false
	}
	_, ok := s.controls[ev.ID]
	return ok
}

func isPaymentSelection(_ *session.Session, ev Event) bool {
	if !ev.IsSelection() {
		return false
	}
	_, ok := paymentIDs[ev.ID]
	return ok
}

func selectionWithPrefix(prefix string) func(*session.Session, Event) bool {
	return func(_ *session.Session, ev Event) bool {
		return ev.IsSelection() && strings.HasPrefix(ev.ID, prefix) && len(ev.ID) > len(prefix)
	}
}

func isText(_ *session.Session, ev Event) bool {
	return ev.IsText()
}

func always(*session.Session, Event) bool {
	return true
}

// ============================================
// Keyword table
// ============================================

type keyword struct {
	intent Kind
	words  []string
	// whole-word terms, for short words that occur inside longer ones
	wholeWords []string
}

// keywords is ordered; the first intent with a matching term wins
var keywords = []keyword{
	{intent: KindMainMenu, words: []string{"merhaba", "selam", "hello", "menü", "menu"}, wholeWords: []string{"hi"}},
	{intent: KindRestaurantList, words: []string{"sipariş", "siparis", "order"}},
	{intent: KindCampaignList, words: []string{"kampanya", "indirim", "campaign"}},
	{intent: KindFeaturedList, words: []string{"önerilen", "populer", "popüler", "popular"}},
	{intent: KindRestaurantList, words: []string{"restoran", "restaurant"}},
	{intent: KindCartView, words: []string{"sepet", "cart"}},
	{intent: KindHelp, words: []string{"yardım", "yardim", "help"}},
}

// normalize lowercases text; the dotted capital İ folds to a plain i so
// "SİPARİŞ" matches "sipariş"
func normalize(text string) string {
	return strings.ToLower(strings.ReplaceAll(text, "İ", "i"))
}

// MatchKeyword returns the intent for free text and whether any term matched
func MatchKeyword(text string) (Kind, bool) {
	lower := normalize(text)
	if strings.TrimSpace(lower) == "" {
		return "", false
	}

	var tokens []string
	for _, kw := range keywords {
		for _, w := range kw.words {
			if strings.Contains(lower, w) {
				return kw.intent, true
			}
		}
		if len(kw.wholeWords) == 0 {
			continue
		}
		if tokens == nil {
			tokens = strings.FieldsFunc(lower, func(r rune) bool {
				return !unicode.IsLetter(r) && !unicode.IsDigit(r)
			})
		}
		for _, tok := range tokens {
			for _, w := range kw.wholeWords {
				if tok == w {
					return kw.intent, true
				}
			}
		}
	}
	return "", false
}
