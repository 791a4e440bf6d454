// Package classify maps live events to candidate notifications.
//
// Classification is a pure function over a fixed per-type rule table. An
// event type outside the table yields no notification and no error; that is
// the normal fate of server events the app does not surface.
package classify

import (
	"fmt"
	"strings"

	"boxfeed/internal/event"
	"boxfeed/internal/notify"
)

// rule holds the derived fields for one event type.
type rule struct {
	category  notify.Category
	priority  notify.Priority
	showToast bool
	playSound bool
	title     string
	body      func(event.LiveEvent) string
}

var rules = map[string]rule{
	event.TypeOrderStatusChanged: {
		category:  notify.CategoryOrder,
		priority:  notify.PriorityHigh,
		showToast: true,
		playSound: true,
		title:     "Status do Pedido Atualizado",
		body:      orderStatusBody,
	},
	event.TypeNewBox: {
		category:  notify.CategoryBox,
		priority:  notify.PriorityNormal,
		showToast: true,
		title:     "Nova Caixa Disponível!",
		body:      newBoxBody,
	},
	event.TypePromotionStarted: {
		category:  notify.CategoryPromotion,
		priority:  notify.PriorityNormal,
		showToast: true,
		title:     "Promoção Especial!",
		body:      promotionBody,
	},
	event.TypeFriendOpenedBox: {
		category: notify.CategorySocial,
		priority: notify.PriorityLow,
		title:    "Amigo Abriu uma Caixa",
		body:     friendOpenedBoxBody,
	},
	event.TypeSystemMaintenance: {
		category:  notify.CategorySystem,
		priority:  notify.PriorityHigh,
		showToast: true,
		playSound: true,
		title:     "Manutenção do Sistema",
		body:      maintenanceBody,
	},
	event.TypeLowStockAlert: {
		category:  notify.CategoryBox,
		priority:  notify.PriorityNormal,
		showToast: true,
		title:     "Estoque Baixo!",
		body:      lowStockBody,
	},
}

// Known reports whether the event type has a classification rule.
func Known(eventType string) bool {
	_, ok := rules[eventType]
	return ok
}

// Classify derives a notification from a live event.
// Unknown event types return (zero, false); there is no error path.
func Classify(ev event.LiveEvent) (notify.Notification, bool) {
	r, ok := rules[ev.Type]
	if !ok {
		return notify.Notification{}, false
	}

	data := make(map[string]any, len(ev.Data))
	for k, v := range ev.Data {
		data[k] = v
	}

	return notify.Notification{
		ID:        fmt.Sprintf("%s_%s", r.category, ev.ID),
		Title:     r.title,
		Body:      r.body(ev),
		Category:  r.category,
		Data:      data,
		Priority:  r.priority,
		Timestamp: ev.Timestamp,
		ShowToast: r.showToast,
		PlaySound: r.playSound,
	}, true
}

// ---- per-type payloads ----
//
// The wire payload is a loose map; each builder decodes the fields it cares
// about at the boundary. Missing fields degrade to a shorter message.

type orderStatusPayload struct {
	OrderID string
	Status  string
}

func orderStatusBody(ev event.LiveEvent) string {
	p := orderStatusPayload{OrderID: ev.String("orderId"), Status: ev.String("status")}
	switch {
	case p.OrderID != "" && p.Status != "":
		return fmt.Sprintf("Pedido %s: %s", p.OrderID, p.Status)
	case p.Status != "":
		return fmt.Sprintf("Seu pedido está: %s", p.Status)
	case p.OrderID != "":
		return fmt.Sprintf("O pedido %s foi atualizado", p.OrderID)
	default:
		return "Seu pedido foi atualizado"
	}
}

type boxPayload struct {
	BoxName string
}

func newBoxBody(ev event.LiveEvent) string {
	p := boxPayload{BoxName: ev.String("boxName")}
	if p.BoxName == "" {
		return "Uma nova caixa chegou na loja"
	}
	return fmt.Sprintf("A caixa %s já está disponível", p.BoxName)
}

func lowStockBody(ev event.LiveEvent) string {
	p := boxPayload{BoxName: ev.String("boxName")}
	if p.BoxName == "" {
		return "Uma caixa está quase esgotada"
	}
	return fmt.Sprintf("Restam poucas unidades da caixa %s", p.BoxName)
}

type promotionPayload struct {
	Name     string
	Discount string
}

func promotionBody(ev event.LiveEvent) string {
	p := promotionPayload{Name: ev.String("promoName"), Discount: ev.String("discount")}
	var b strings.Builder
	if p.Name != "" {
		b.WriteString(p.Name)
	} else {
		b.WriteString("Uma nova promoção começou")
	}
	if p.Discount != "" {
		b.WriteString(": ")
		b.WriteString(p.Discount)
		b.WriteString(" de desconto")
	}
	return b.String()
}

type friendBoxPayload struct {
	FriendName string
	BoxName    string
}

func friendOpenedBoxBody(ev event.LiveEvent) string {
	p := friendBoxPayload{FriendName: ev.String("friendName"), BoxName: ev.String("boxName")}
	switch {
	case p.FriendName != "" && p.BoxName != "":
		return fmt.Sprintf("%s abriu a caixa %s", p.FriendName, p.BoxName)
	case p.FriendName != "":
		return fmt.Sprintf("%s abriu uma caixa", p.FriendName)
	default:
		return "Um amigo abriu uma caixa"
	}
}

type maintenancePayload struct {
	Message string
}

func maintenanceBody(ev event.LiveEvent) string {
	p := maintenancePayload{Message: ev.String("message")}
	if p.Message == "" {
		return "O sistema entrará em manutenção em breve"
	}
	return p.Message
}
