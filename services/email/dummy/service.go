package dummymail

import (
	"fmt"
	"log"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/trezcool/academia/core"
)

var (
	mu           sync.Mutex
	sentMessages = make([]core.EmailMessage, 0)
)

// SentMessages returns a copy of every message sent since the last Flush.
func SentMessages() []core.EmailMessage {
	mu.Lock()
	defer mu.Unlock()
	return append([]core.EmailMessage(nil), sentMessages...)
}

// Flush forgets the sent messages.
func Flush() {
	mu.Lock()
	defer mu.Unlock()
	sentMessages = sentMessages[:0]
}

type service struct {
	defaultFromEmail string
	subjPrefix       string
	quiet            bool
}

var _ core.EmailService = (*service)(nil)

// NewService returns an EmailService recording the messages instead of sending them.
// Unless quiet, every message is also logged.
func NewService(appName, defaultFromEmail string, quiet bool) core.EmailService {
	return &service{
		defaultFromEmail: defaultFromEmail,
		subjPrefix:       "[" + appName + "] ",
		quiet:            quiet,
	}
}

func (svc *service) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if err := msg.Render(); err != nil {
			log.Printf("rendering %q failed: %v", msg.Subject, err)
			continue
		}
		if msg.HasRecipients() && msg.HasContent() {
			mu.Lock()
			sentMessages = append(sentMessages, *msg)
			mu.Unlock()
			if !svc.quiet {
				log.Println(svc.format(*msg))
			}
		}
	}
}

func (svc *service) format(msg core.EmailMessage) string {
	body := &strings.Builder{}
	_, _ = fmt.Fprintf(body, "From: %s\r\n", svc.defaultFromEmail)
	_, _ = fmt.Fprintf(body, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	_, _ = fmt.Fprintf(body, "Subject: %s\r\n", svc.subjPrefix+msg.Subject)
	_, _ = fmt.Fprintf(body, "To: %s\r\n", joinAddresses(msg.To))
	_, _ = fmt.Fprint(body, "Content-Type: text/plain\r\n\r\n")
	_, _ = fmt.Fprintf(body, "%s\r\n", msg.TextContent)
	return body.String()
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}
