package whatsapp

import (
	"fmt"
	"strings"
	"time"

	"github.com/xmtea/whatsapp-bot/internal/catalog"
	"github.com/xmtea/whatsapp-bot/internal/domain/order"
	"github.com/xmtea/whatsapp-bot/internal/ordering"
	"github.com/xmtea/whatsapp-bot/internal/pricing"
)

// Turkey has no DST; a fixed zone avoids depending on tzdata
var turkeyTime = time.FixedZone("TRT", 3*60*60)

const brandName = "🍽️ Menüm Yanımda"

// Render turns a directive into the messages sent to the user, in order
func Render(to string, d ordering.Directive) []Message {
	switch d.Kind {
	case ordering.KindMainMenu:
		return []Message{mainMenu(to)}
	case ordering.KindRestaurantList:
		return []Message{businessList(to, d.Businesses, "🍽️ Hoş Geldiniz!",
			fmt.Sprintf("%d restoran hizmetinizde. Lütfen bir restoran seçin:", len(d.Businesses)), "Aktif Restoranlar")}
	case ordering.KindFeaturedList:
		return []Message{businessList(to, d.Businesses, "⭐ Önerilen Restoranlar",
			fmt.Sprintf("%d popüler restoran! En çok tercih edilen yerler sizin için seçildi.", len(d.Businesses)), "Popüler Seçimler")}
	case ordering.KindCampaignList:
		return []Message{businessList(to, d.Businesses, "🔥 Kampanyalı Restoranlar",
			fmt.Sprintf("%d özel kampanya! Şimdi sipariş verin, indirimli fiyatlardan yararlanın.", len(d.Businesses)), "Kampanyalı Yerler")}
	case ordering.KindCategoryList:
		return []Message{categoryList(to, d.Business, d.Categories)}
	case ordering.KindProductList:
		return []Message{productList(to, d.Category, d.Products)}
	case ordering.KindCartView:
		return []Message{cartView(to, d.Summary)}
	case ordering.KindCartEmpty:
		return []Message{NewText(to, "🛒 Sepetiniz boş!\n\n\"Menü\" yazarak alışverişe başlayabilirsiniz.")}
	case ordering.KindCartCleared:
		return []Message{NewText(to, "🗑️ Sepetiniz boşaltıldı."), mainMenu(to)}
	case ordering.KindAskAddress:
		return []Message{NewText(to, "📍 *Teslimat Adresi*\n\nLütfen teslimat adresinizi yazın.\n\nÖrnek: Atatürk Cad. No:123 Daire:5 Beşiktaş/İstanbul")}
	case ordering.KindPaymentMethods:
		return []Message{paymentMethods(to, d.Total)}
	case ordering.KindOrderSummary:
		return []Message{orderSummary(to, d)}
	case ordering.KindOrderConfirmed:
		return []Message{NewText(to, orderConfirmed(d))}
	case ordering.KindOrderCancelled:
		return []Message{NewText(to, "❌ Sipariş iptal edildi."), mainMenu(to)}
	case ordering.KindOrderHistory:
		return []Message{NewText(to, orderHistory(d.Orders))}
	case ordering.KindOrderTracking:
		return []Message{NewText(to, orderTracking(d.Order))}
	case ordering.KindHelp:
		return []Message{NewText(to, helpText)}
	case ordering.KindProductNotFound:
		return []Message{NewText(to, "❌ "+messageOr(d.Message, "Ürün bulunamadı."))}
	case ordering.KindNotFound:
		return []Message{NewText(to, "❌ "+messageOr(d.Message, "Aradığınız seçenek bulunamadı.")), mainMenu(to)}
	case ordering.KindError:
		return []Message{NewText(to, "⚠️ "+messageOr(d.Message, "Bir hata oluştu, lütfen tekrar deneyin."))}
	default:
		return []Message{mainMenu(to)}
	}
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}

func mainMenu(to string) Message {
	return NewList(to, List{
		Header: brandName,
		Body:   "Hoş geldiniz! Ne yapmak istersiniz?",
		Footer: "Lütfen bir işlem seçin",
		Button: "Menü",
		Sections: []Section{
			{Title: "🛒 Sipariş İşlemleri", Rows: []Row{
				{ID: ordering.ControlNewOrder, Title: "🛒 Sipariş Ver", Description: "Yeni sipariş oluştur"},
				{ID: ordering.ControlMyOrders, Title: "📦 Siparişlerim", Description: "Geçmiş siparişlerimi gör"},
				{ID: ordering.ControlTrackOrder, Title: "📍 Sipariş Takip", Description: "Son siparişimi takip et"},
			}},
			{Title: "🏪 Restoranlar", Rows: []Row{
				{ID: ordering.ControlFeatured, Title: "⭐ Önerilen Restoranlar", Description: "Popüler ve yüksek puanlı"},
				{ID: ordering.ControlCampaign, Title: "🔥 Kampanyalı Yerler", Description: "İndirimli siparişler"},
				{ID: ordering.ControlAllList, Title: "📋 Tüm Restoranlar", Description: "Tüm listeyi görüntüle"},
			}},
			{Title: "ℹ️ Yardım & Bilgi", Rows: []Row{
				{ID: ordering.ControlHelp, Title: "ℹ️ Yardım", Description: "Nasıl sipariş verebilirim?"},
				{ID: ordering.ControlContact, Title: "📞 İletişim", Description: "Bize ulaşın"},
			}},
		},
	})
}

func businessList(to string, businesses []catalog.Business, header, body, section string) Message {
	if len(businesses) == 0 {
		return NewText(to, "😔 Şu anda listelenecek restoran bulunmuyor.\n\n\"Menü\" yazarak ana menüye dönebilirsiniz.")
	}
	rows := make([]Row, 0, len(businesses))
	for _, b := range businesses {
		desc := b.Category
		if b.Rating > 0 {
			desc = fmt.Sprintf("%s • ⭐ %.1f", b.Category, b.Rating)
		}
		rows = append(rows, Row{ID: b.ID, Title: b.Name, Description: desc})
	}
	return NewList(to, List{
		Header:   header,
		Body:     body,
		Footer:   "Powered by Menüm Yanımda",
		Button:   "Restoran Seç",
		Sections: []Section{{Title: section, Rows: rows}},
	})
}

// categoryList groups categories into sections by their Section name,
// keeping the first-seen order of sections
func categoryList(to string, b *catalog.Business, categories []catalog.Category) Message {
	name := "Restoran"
	if b != nil {
		name = b.Name
	}
	if len(categories) == 0 {
		return NewText(to, fmt.Sprintf("😔 %s için menü henüz hazır değil.", name))
	}

	var sections []Section
	index := make(map[string]int)
	for _, c := range categories {
		title := c.Section
		if title == "" {
			title = "Menü"
		}
		i, ok := index[title]
		if !ok {
			i = len(sections)
			index[title] = i
			sections = append(sections, Section{Title: title})
		}
		sections[i].Rows = append(sections[i].Rows, Row{ID: c.ID, Title: c.Title, Description: c.Description})
	}

	return NewList(to, List{
		Header:   fmt.Sprintf("📋 %s Menüsü", name),
		Body:     "Kategorilerimize göz atın ve sipariş verin!",
		Footer:   "Lezzetli yemekler sizi bekliyor",
		Button:   "Kategoriler",
		Sections: sections,
	})
}

func productList(to string, c *catalog.Category, products []catalog.Product) Message {
	title := "Ürünler"
	if c != nil && c.Title != "" {
		title = c.Title
	}
	if len(products) == 0 {
		return NewText(to, "😔 Bu kategoride şu anda ürün bulunmuyor.")
	}

	rows := make([]Row, 0, len(products))
	for _, p := range products {
		desc := pricing.FormatAmount(p.Price)
		if p.Description != "" {
			desc += " • " + p.Description
		}
		rows = append(rows, Row{ID: p.ID, Title: p.Name, Description: desc})
	}
	return NewList(to, List{
		Header:   "🍽️ " + strings.ToUpper(title),
		Body:     fmt.Sprintf("%d lezzetli ürün sizleri bekliyor!\n\nLütfen seçim yapın:", len(products)),
		Footer:   "Sipariş vermek için seçin",
		Button:   "ÜRÜNLER",
		Sections: []Section{{Title: "Ürün Seçenekleri", Rows: rows}},
	})
}

func cartView(to string, s pricing.Summary) Message {
	return NewButtons(to, Buttons{
		Header: "🛒 Sepetiniz",
		Body:   s.Text(),
		Footer: fmt.Sprintf("%d ürün", s.ItemCount()),
		Buttons: []ButtonReply{
			{ID: ordering.ControlCheckout, Title: "✅ Siparişi Tamamla"},
			{ID: ordering.ControlCartMenu, Title: "➕ Ürün Ekle"},
			{ID: ordering.ControlClearCart, Title: "🗑️ Sepeti Boşalt"},
		},
	})
}

func paymentMethods(to string, total int) Message {
	return NewList(to, List{
		Header: "💳 Ödeme Yöntemi",
		Body:   fmt.Sprintf("Toplam: *%s*\n\nLütfen ödeme yönteminizi seçin:", pricing.FormatAmount(total)),
		Footer: "Güvenli ödeme",
		Button: "Ödeme Seç",
		Sections: []Section{
			{Title: "Nakit Ödeme", Rows: []Row{
				{ID: "payment_cash", Title: "💵 Nakit", Description: "Kapıda nakit ödeme"},
			}},
			{Title: "Kart ile Ödeme", Rows: []Row{
				{ID: "payment_card", Title: "💳 Kredi/Banka Kartı", Description: "Kapıda kart ile ödeme"},
				{ID: "payment_sodexo", Title: "🎫 Pluxee (Sodexo)", Description: "Yemek kartı"},
				{ID: "payment_multinet", Title: "🎟️ Multinet", Description: "Multinet kartı"},
			}},
		},
	})
}

func orderSummary(to string, d ordering.Directive) Message {
	var b strings.Builder
	b.WriteString("📦 *SİPARİŞ ÖZETİ*\n\n")
	b.WriteString(d.Summary.LinesText())
	if p := d.Pending; p != nil {
		fmt.Fprintf(&b, "\n\n📍 *Adres:* %s\n\n💳 *Ödeme:* %s", p.Address, p.PaymentMethod.Label())
	}
	fmt.Fprintf(&b, "\n\n💰 *Toplam: %s*\n🚚 Teslimat: %s\n✅ *Genel Toplam: %s*\n📋 No: %s",
		pricing.FormatAmount(d.Summary.Subtotal),
		pricing.FormatAmount(d.Summary.DeliveryFee),
		pricing.FormatAmount(d.Summary.GrandTotal),
		d.OrderID)

	return NewButtons(to, Buttons{
		Body: b.String(),
		Buttons: []ButtonReply{
			{ID: ordering.ControlConfirm, Title: "✅ Onayla"},
			{ID: ordering.ControlCancel, Title: "❌ İptal"},
		},
	})
}

// etaWindow renders the delivery estimate as a range ending at eta minutes
func etaWindow(eta int) string {
	low := eta - 15
	if low < 5 {
		low = 5
	}
	if low >= eta {
		return fmt.Sprintf("%d dk", eta)
	}
	return fmt.Sprintf("%d-%d dk", low, eta)
}

func orderConfirmed(d ordering.Directive) string {
	var b strings.Builder
	b.WriteString("✅ *SİPARİŞİNİZ ALINDI!*\n\n")
	fmt.Fprintf(&b, "📋 Sipariş No: *%s*\n", d.OrderID)
	if o := d.Order; o != nil {
		fmt.Fprintf(&b, "💰 Toplam: *%s*\n", pricing.FormatAmount(o.GrandTotal()))
		fmt.Fprintf(&b, "💳 Ödeme: %s\n", o.PaymentMethod.Label())
		fmt.Fprintf(&b, "📍 Adres: %s\n", o.Address)
	}
	fmt.Fprintf(&b, "\n⏱️ Tahmini Teslimat: *%s*\n\n", etaWindow(d.ETAMinutes))
	b.WriteString("Siparişiniz hazırlanmaya başlandı.\nDurum güncellemeleri için bildirim alacaksınız.\n\nTeşekkür ederiz! 🙏")
	return b.String()
}

func orderHistory(orders []*order.Order) string {
	if len(orders) == 0 {
		return "📦 Henüz siparişiniz bulunmuyor.\n\n\"Sipariş\" yazarak ilk siparişinizi verebilirsiniz."
	}
	var b strings.Builder
	b.WriteString("📦 *SİPARİŞLERİM*\n")
	for i, o := range orders {
		fmt.Fprintf(&b, "\n%d. *%s*\n   %s • %s\n   %s",
			i+1, o.ID,
			o.ConfirmedAt.In(turkeyTime).Format("02.01.2006 15:04"),
			pricing.FormatAmount(o.GrandTotal()),
			o.Status.Label())
	}
	return b.String()
}

func orderTracking(o *order.Order) string {
	if o == nil {
		return "📍 Takip edilecek bir siparişiniz bulunmuyor."
	}
	var b strings.Builder
	b.WriteString("📍 *SİPARİŞ TAKİP*\n\n")
	fmt.Fprintf(&b, "📋 Sipariş No: *%s*\n", o.ID)
	fmt.Fprintf(&b, "📌 Durum: *%s*\n", o.Status.Label())
	fmt.Fprintf(&b, "🕒 Son güncelleme: %s", o.UpdatedAt.In(turkeyTime).Format("02.01.2006 15:04"))
	if n := len(o.StatusHistory); n > 0 && o.StatusHistory[n-1].Note != "" {
		fmt.Fprintf(&b, "\n📝 %s", o.StatusHistory[n-1].Note)
	}
	return b.String()
}

var helpText = "ℹ️ *YARDIM*\n\n" +
	"1️⃣ \"Sipariş\" yazın veya menüden *Sipariş Ver* seçin\n" +
	"2️⃣ Restoran ve kategori seçin\n" +
	"3️⃣ Ürünlere dokunarak sepete ekleyin\n" +
	"4️⃣ *Siparişi Tamamla* ile adres ve ödeme bilgisini girin\n\n" +
	"Kısayollar: \"menü\", \"sepet\", \"kampanya\", \"yardım\"\n\n" +
	"📞 Destek: destek@menumyanimda.com"
