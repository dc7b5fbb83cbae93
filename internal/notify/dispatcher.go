package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/Diegogs92/vuelavuela/internal/domain"
	"github.com/Diegogs92/vuelavuela/internal/events"
	"github.com/Diegogs92/vuelavuela/internal/metrics"
	"github.com/Diegogs92/vuelavuela/internal/models"

	"github.com/rs/zerolog"
)

const sendTimeout = 15 * time.Second

// Dispatcher subscribes to lifecycle events and fans them out to email
// and the optional Telegram agency channel. Every failure is logged and
// counted, never returned; the transition already committed.
type Dispatcher struct {
	mailer      domain.Mailer
	telegram    *TelegramNotifier
	agencyEmail string
	baseURL     string
	logger      *zerolog.Logger
}

func NewDispatcher(mailer domain.Mailer, telegram *TelegramNotifier, agencyEmail, baseURL string, logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		mailer:      mailer,
		telegram:    telegram,
		agencyEmail: agencyEmail,
		baseURL:     strings.TrimRight(baseURL, "/"),
		logger:      logger,
	}
}

// Register wires the dispatcher into the event bus.
func (d *Dispatcher) Register(bus *events.EventBus) {
	bus.Subscribe(events.EventRequestSubmitted, d.handle(d.onRequestSubmitted))
	bus.Subscribe(events.EventQuoteCreated, d.handle(d.onQuoteCreated))
	bus.Subscribe(events.EventQuoteAccepted, d.handle(d.onQuoteAccepted))
	bus.Subscribe(events.EventQuoteRejected, d.handle(d.onQuoteRejected))
}

func (d *Dispatcher) handle(fn func(payload events.LifecyclePayload) error) events.EventHandler {
	return func(event *events.Event) error {
		var payload events.LifecyclePayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			d.logger.Error().Err(err).Str("event_type", event.Type).Msg("decode event payload")
			return nil
		}
		if err := fn(payload); err != nil {
			d.logger.Error().Err(err).Str("event_type", event.Type).Msg("notification failed")
		}
		return nil
	}
}

func (d *Dispatcher) onRequestSubmitted(payload events.LifecyclePayload) error {
	request := payload.Request
	if request == nil {
		return fmt.Errorf("request snapshot missing")
	}

	subject := fmt.Sprintf("Nueva solicitud de viaje de %s", request.UserName)
	body := requestEmailHTML(request)
	d.sendMail(d.agencyEmail, subject, body)

	d.sendTelegram(fmt.Sprintf("✈️ *Nueva solicitud de viaje*\nCliente: %s\nDestinos: %s",
		request.UserName, strings.Join(request.Preferences.Destinations, ", ")))
	return nil
}

func (d *Dispatcher) onQuoteCreated(payload events.LifecyclePayload) error {
	if payload.Quote == nil || payload.Request == nil {
		return fmt.Errorf("quote or request snapshot missing")
	}

	subject := fmt.Sprintf("Nueva oferta de viaje: %s", payload.Quote.Title)
	body := quoteEmailHTML(payload.Quote, payload.Request, d.quoteLink(payload.Quote.ID))
	d.sendMail(payload.Request.UserEmail, subject, body)
	return nil
}

func (d *Dispatcher) onQuoteAccepted(payload events.LifecyclePayload) error {
	quote := payload.Quote
	if quote == nil {
		return fmt.Errorf("quote snapshot missing")
	}

	subject := "Oferta aceptada"
	body := decisionEmailHTML(quote, payload.Request, "Oferta Aceptada", "aceptado")
	d.sendMail(d.agencyEmail, subject, body)

	if payload.Request != nil {
		d.sendMail(payload.Request.UserEmail, "Confirmación de tu viaje",
			confirmationEmailHTML(quote, payload.Request))
	}

	d.sendTelegram(fmt.Sprintf("✅ *Oferta aceptada*\n%s — %s %s",
		quote.Title, quote.Price.String(), quote.Currency))
	return nil
}

func (d *Dispatcher) onQuoteRejected(payload events.LifecyclePayload) error {
	quote := payload.Quote
	if quote == nil {
		return fmt.Errorf("quote snapshot missing")
	}

	subject := "Oferta rechazada"
	body := decisionEmailHTML(quote, payload.Request, "Oferta Rechazada", "rechazado")
	d.sendMail(d.agencyEmail, subject, body)

	d.sendTelegram(fmt.Sprintf("❌ *Oferta rechazada*\n%s — %s %s",
		quote.Title, quote.Price.String(), quote.Currency))
	return nil
}

func (d *Dispatcher) sendMail(to, subject, body string) {
	if d.mailer == nil || to == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if err := d.mailer.Send(ctx, to, subject, body); err != nil {
		metrics.IncNotification("email", "error")
		d.logger.Error().Err(err).Str("to", to).Str("subject", subject).Msg("send email")
		return
	}
	metrics.IncNotification("email", "ok")
}

func (d *Dispatcher) sendTelegram(text string) {
	if d.telegram == nil {
		return
	}
	if err := d.telegram.Notify(text); err != nil {
		metrics.IncNotification("telegram", "error")
		d.logger.Error().Err(err).Msg("send telegram")
		return
	}
	metrics.IncNotification("telegram", "ok")
}

func (d *Dispatcher) quoteLink(quoteID string) string {
	return fmt.Sprintf("%s/dashboard/ofertas/%s", d.baseURL, quoteID)
}

func requestEmailHTML(request *models.TravelRequest) string {
	prefs := request.Preferences

	var b strings.Builder
	b.WriteString("<h1>Nueva Solicitud de Viaje</h1>")
	fmt.Fprintf(&b, "<h2>Cliente: %s</h2>", html.EscapeString(request.UserName))
	fmt.Fprintf(&b, "<p><strong>Email:</strong> %s</p>", html.EscapeString(request.UserEmail))

	b.WriteString("<h3>Detalles del Viaje:</h3><ul>")
	fmt.Fprintf(&b, "<li><strong>Fechas:</strong> %s - %s</li>",
		html.EscapeString(prefs.TravelPeriod.StartDate), html.EscapeString(prefs.TravelPeriod.EndDate))
	fmt.Fprintf(&b, "<li><strong>Fechas flexibles:</strong> %s</li>", siNo(prefs.TravelPeriod.Flexible))
	fmt.Fprintf(&b, "<li><strong>Días disponibles:</strong> %d</li>", prefs.DaysAvailable)
	b.WriteString("</ul>")

	b.WriteString("<h3>Pasajeros:</h3><ul>")
	fmt.Fprintf(&b, "<li>Adultos: %d</li><li>Niños: %d</li><li>Bebés: %d</li>",
		prefs.Passengers.Adults, prefs.Passengers.Children, prefs.Passengers.Babies)
	b.WriteString("</ul>")

	writeListSection(&b, "Destinos:", prefs.Destinations)
	writeListSection(&b, "Tipo de alojamiento:", prefs.AccommodationType)
	writeListSection(&b, "Actividades de interés:", prefs.Activities)

	other := prefs.OtherPreferences
	if other == "" {
		other = "Ninguna"
	}
	fmt.Fprintf(&b, "<h3>Otras preferencias:</h3><p>%s</p>", html.EscapeString(other))

	fmt.Fprintf(&b, "<hr><p><strong>ID de solicitud:</strong> %s</p>", html.EscapeString(request.ID))
	return b.String()
}

func quoteEmailHTML(quote *models.Quote, request *models.TravelRequest, link string) string {
	var b strings.Builder
	b.WriteString("<h1>¡Nueva Oferta de Viaje!</h1>")
	fmt.Fprintf(&b, "<p>Hola %s,</p>", html.EscapeString(request.UserName))
	b.WriteString("<p>Hemos preparado una oferta especial para tu viaje:</p>")

	fmt.Fprintf(&b, "<h2>%s</h2>", html.EscapeString(quote.Title))
	fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(quote.Description))
	fmt.Fprintf(&b, "<h3>Itinerario:</h3><pre>%s</pre>", html.EscapeString(quote.Itinerary))
	fmt.Fprintf(&b, "<h3>Precio:</h3><p><strong>%s %s</strong></p>",
		quote.Price.String(), html.EscapeString(quote.Currency))

	if !quote.ValidUntil.IsZero() {
		fmt.Fprintf(&b, "<p><strong>Válido hasta:</strong> %s</p>", quote.ValidUntil.Format("02/01/2006"))
	}

	fmt.Fprintf(&b, `<p><a href="%s">Ver oferta completa</a></p>`, link)
	b.WriteString("<p>¿Te interesa? Ingresa a tu cuenta para aceptar o rechazar esta oferta.</p>")
	b.WriteString("<hr><p>Vuela Vuela - Tu agencia de viajes personalizada</p>")
	return b.String()
}

func decisionEmailHTML(quote *models.Quote, request *models.TravelRequest, heading, decision string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h1>%s</h1>", heading)

	if request != nil {
		fmt.Fprintf(&b, "<p>El cliente %s (%s) ha %s la siguiente oferta:</p>",
			html.EscapeString(request.UserName), html.EscapeString(request.UserEmail), decision)
	}

	fmt.Fprintf(&b, "<h2>%s</h2>", html.EscapeString(quote.Title))
	fmt.Fprintf(&b, "<p><strong>Precio:</strong> %s %s</p>", quote.Price.String(), html.EscapeString(quote.Currency))
	fmt.Fprintf(&b, "<p><strong>ID de oferta:</strong> %s</p>", html.EscapeString(quote.ID))
	fmt.Fprintf(&b, "<p><strong>ID de solicitud:</strong> %s</p>", html.EscapeString(quote.RequestID))
	return b.String()
}

func confirmationEmailHTML(quote *models.Quote, request *models.TravelRequest) string {
	var b strings.Builder
	b.WriteString("<h1>¡Tu viaje está confirmado!</h1>")
	fmt.Fprintf(&b, "<p>Hola %s,</p>", html.EscapeString(request.UserName))
	b.WriteString("<p>Hemos registrado tu aceptación. La agencia se pondrá en contacto para coordinar los próximos pasos.</p>")
	fmt.Fprintf(&b, "<h2>%s</h2>", html.EscapeString(quote.Title))
	fmt.Fprintf(&b, "<p><strong>Precio:</strong> %s %s</p>", quote.Price.String(), html.EscapeString(quote.Currency))
	b.WriteString("<hr><p>Vuela Vuela - Tu agencia de viajes personalizada</p>")
	return b.String()
}

func writeListSection(b *strings.Builder, title string, items []string) {
	fmt.Fprintf(b, "<h3>%s</h3><ul>", title)
	for _, item := range items {
		fmt.Fprintf(b, "<li>%s</li>", html.EscapeString(item))
	}
	b.WriteString("</ul>")
}

func siNo(v bool) string {
	if v {
		return "Sí"
	}
	return "No"
}
