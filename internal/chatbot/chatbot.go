// Package chatbot answers basic medicine questions for pharmacy staff.
package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const Disclaimer = "This information is for educational purposes only. Always consult a healthcare professional or a licensed pharmacist for medical advice."

const systemPrompt = "You are a medical assistant for MEDicos pharmacy. Give short, accurate, safe information about medicines and always recommend consulting a healthcare professional."

// Completer is a language model backend.
type Completer interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

type Reply struct {
	Response  string `json:"response"`
	Medicine  *Drug  `json:"medicine_info,omitempty"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
}

// Bot answers from the local knowledge base first and falls back to the
// configured completers in order.
type Bot struct {
	completers []Completer
	log        *zap.Logger
	now        func() time.Time
}

func New(log *zap.Logger, completers ...Completer) *Bot {
	return &Bot{completers: completers, log: log, now: time.Now}
}

var ErrEmptyMessage = errors.New("message is required")

func (b *Bot) Reply(ctx context.Context, message string) (Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, ErrEmptyMessage
	}
	r := Reply{Timestamp: b.now().UTC().Format(time.RFC3339)}

	if name, drug, ok := lookup(message); ok {
		r.Medicine = &drug
		r.Source = "knowledge_base"
		r.Response = describe(name, drug)
		return r, nil
	}

	for _, c := range b.completers {
		text, err := c.Complete(ctx, message)
		if err != nil {
			b.log.Warn("chat_completer_failed", zap.String("completer", c.Name()), zap.Error(err))
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			r.Source = c.Name()
			r.Response = text + "\n\n" + Disclaimer
			return r, nil
		}
	}

	r.Source = "fallback"
	r.Response = fmt.Sprintf("I understand you're asking about: %q. For specific medical advice please speak with a pharmacist or contact your doctor. For immediate medical concerns seek professional medical attention.", message)
	return r, nil
}

// lookup finds the first known medicine named in text, by generic or
// brand name.
func lookup(text string) (string, Drug, bool) {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	})
	for _, w := range words {
		if d, ok := knowledge[w]; ok {
			return w, d, true
		}
		for name, d := range knowledge {
			if w == strings.ToLower(d.GenericName) {
				return name, d, true
			}
			for _, brand := range d.BrandNames {
				if w == strings.ToLower(brand) {
					return name, d, true
				}
			}
		}
	}
	return "", Drug{}, false
}

func describe(name string, d Drug) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", strings.ToUpper(name[:1])+name[1:], d.GenericName)
	fmt.Fprintf(&b, "Uses: %s\n", strings.Join(d.Uses, ", "))
	fmt.Fprintf(&b, "Dosage (adults): %s\n", d.AdultDose)
	fmt.Fprintf(&b, "Side effects: %s\n", strings.Join(d.SideEffects, ", "))
	fmt.Fprintf(&b, "Warnings: %s\n\n", strings.Join(d.Warnings, ", "))
	b.WriteString(Disclaimer)
	return b.String()
}
