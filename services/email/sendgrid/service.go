package sendgridmail

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sethvargo/go-retry"

	"github.com/trezcool/academia/core"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"

	maxRetries  = uint64(3)
	sendTimeout = 30 * time.Second
)

type service struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
	logger     core.Logger
}

var _ core.EmailService = (*service)(nil)

func NewService(key, appName string, from mail.Address, logger core.Logger) core.EmailService {
	return &service{
		key:        key,
		from:       sgmail.NewEmail(from.Name, from.Address),
		subjPrefix: "[" + appName + "] ",
		logger:     logger,
	}
}

func (svc *service) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		go func() {
			if err := msg.Render(); err != nil {
				svc.logger.Error(fmt.Sprintf("rendering email %q", msg.Subject), err)
				return
			}
			if msg.HasRecipients() && msg.HasContent() {
				ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
				defer cancel()
				if err := svc.send(ctx, *msg); err != nil {
					svc.logger.Error(fmt.Sprintf("sending email %q", msg.Subject), err)
				}
			}
		}()
	}
}

func (svc *service) prepare(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject
	for _, to := range msg.To {
		p.AddTos(sgmail.NewEmail(to.Name, to.Address))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	return m
}

// send posts msg, retrying on transport errors and 5xx responses.
func (svc *service) send(ctx context.Context, msg core.EmailMessage) error {
	body := sgmail.GetRequestBody(svc.prepare(msg))
	backoff := retry.WithMaxRetries(maxRetries, retry.NewExponential(time.Second))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req := sendgrid.GetRequest(svc.key, endpoint, host)
		req.Method = rest.Post
		req.Body = body

		res, err := sendgrid.MakeRequestWithContext(ctx, req)
		switch {
		case err != nil:
			return retry.RetryableError(errors.Wrap(err, "calling sendgrid"))
		case res.StatusCode >= http.StatusInternalServerError:
			return retry.RetryableError(errors.Errorf("sendgrid status %d: %s", res.StatusCode, res.Body))
		case res.StatusCode >= http.StatusBadRequest:
			return errors.Errorf("sendgrid status %d: %s", res.StatusCode, res.Body)
		}
		return nil
	})
}
