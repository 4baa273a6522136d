package decoder

import (
	"net/url"
	"strings"
)

const (
	DefaultMessagingBaseURL = "https://wa.me"
	DefaultRecipient        = "523331155895"
	DefaultTemplate         = "Hola Pepe, usé el Decodificador Emocional. Mi síntoma: {symptom}. Conflicto detectado: {conflict}. Quiero agendar mi sesión."
)

// LinkBuilder composes the pre-addressed messaging deep link offered after
// a reading. Placeholders {symptom} and {conflict} are substituted
// literally, upper-cased.
type LinkBuilder struct {
	BaseURL   string
	Recipient string
	Template  string
}

func DefaultLinkBuilder() LinkBuilder {
	return LinkBuilder{BaseURL: DefaultMessagingBaseURL, Recipient: DefaultRecipient, Template: DefaultTemplate}
}

func (b LinkBuilder) Message(input string, bundle Bundle) string {
	template := b.Template
	if template == "" {
		template = DefaultTemplate
	}
	replacer := strings.NewReplacer(
		"{symptom}", strings.ToUpper(input),
		"{conflict}", strings.ToUpper(bundle.ConflictTag),
	)
	return replacer.Replace(template)
}

func (b LinkBuilder) Build(input string, bundle Bundle) string {
	return b.Contact() + "?text=" + encodeComponent(b.Message(input, bundle))
}

// Contact is the bare link with no pre-filled message.
func (b LinkBuilder) Contact() string {
	base := b.BaseURL
	if base == "" {
		base = DefaultMessagingBaseURL
	}
	recipient := b.Recipient
	if recipient == "" {
		recipient = DefaultRecipient
	}
	return strings.TrimSuffix(base, "/") + "/" + url.PathEscape(recipient)
}

// encodeComponent percent-encodes spaces as %20 rather than '+'. A literal
// '+' is already escaped to %2B by QueryEscape.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
