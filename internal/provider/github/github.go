package github

import (
	"net/http"
	"strings"

	"github.com/google/go-github/v59/github"
	"go.uber.org/zap"

	"github.com/pradeepmouli/repoweaver/internal/logfields"
	"github.com/pradeepmouli/repoweaver/internal/provider"
)

const loggerName = "github-event-provider"

// Provider listens for github-webhook http-requests at a http-server handler,
// validates and converts the requests to Events and forwards them to an event
// channel.
type Provider struct {
	logger        *zap.Logger
	webhookSecret []byte
	c             chan<- *provider.Event
}

type option func(*Provider)

func WithPayloadSecret(secret string) option {
	return func(p *Provider) {
		p.webhookSecret = []byte(secret)
	}
}

func New(eventChan chan<- *provider.Event, opts ...option) *Provider {
	p := Provider{
		c: eventChan,
	}

	for _, o := range opts {
		o(&p)
	}

	if p.logger == nil {
		p.logger = zap.L().Named(loggerName)
	}

	return &p
}

func (p *Provider) HTTPHandler(resp http.ResponseWriter, req *http.Request) {
	deliveryID := github.DeliveryID(req)
	hookType := github.WebHookType(req)

	logger := p.logger.With(
		logfields.EventProvider("github"),
		zap.String("github.delivery_id", deliveryID),
		zap.String("github.webhook_type", hookType),
	)

	payload, err := github.ValidatePayload(req, p.webhookSecret)
	if err != nil {
		logger.Info(
			"received invalid http request, payload validation failed",
			logfields.Event("github_http_request_validation_failed"),
			zap.Error(err),
		)
		http.Error(resp, err.Error(), http.StatusBadRequest)
		return
	}

	event, err := github.ParseWebHook(hookType, payload)
	if err != nil {
		logger.Info(
			"received invalid http request, parsing failed",
			logfields.Event("github_event_parsing_failed"),
			zap.Error(err),
		)
		http.Error(resp, err.Error(), http.StatusBadRequest)
		return
	}

	ev := provider.Event{
		JSON:       payload,
		Provider:   "github",
		DeliveryID: deliveryID,
		EventType:  hookType,
	}

	switch event := event.(type) {
	case *github.PushEvent:
		if repo := event.GetRepo(); repo != nil {
			ev.Repository = repo.GetName()
			ev.DefaultBranch = repo.GetDefaultBranch()

			if owner := repo.GetOwner(); owner != nil {
				ev.Owner = owner.GetLogin()
			}
		}

		ev.Branch = refToBranch(event.GetRef())

		if inst := event.GetInstallation(); inst != nil {
			ev.InstallationID = inst.GetID()
		}

	case *github.InstallationEvent:
		if inst := event.GetInstallation(); inst != nil {
			ev.InstallationID = inst.GetID()
		}

	case *github.InstallationRepositoriesEvent:
		if inst := event.GetInstallation(); inst != nil {
			ev.InstallationID = inst.GetID()
		}

	default:
		logger.Debug("ignoring event, event type is unsupported",
			logfields.Event("github_unsupported_event_received"),
		)
	}

	logger = logger.With(ev.LogFields()...)

	select {
	case p.c <- &ev:
		logger.Debug("event forwarded to channel",
			logfields.Event("github_event_forwarded"),
		)

	default:
		logger.Warn(
			"event lost, forwarding event to channel failed",
			zap.String("error", "could not forward event to channel, send would have blocked"),
			logfields.Event("github_forwarding_event_failed"),
		)

		http.Error(resp, "queue full", http.StatusServiceUnavailable)
		return
	}
}

// refToBranch returns the branch name of a git reference.
// If ref does not reference a branch, an empty string is returned.
func refToBranch(ref string) string {
	const branchRefPrefix = "refs/heads/"

	if !strings.HasPrefix(ref, branchRefPrefix) {
		return ""
	}

	return strings.TrimPrefix(ref, branchRefPrefix)
}
