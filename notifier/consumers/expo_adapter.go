package consumers

// Expo push API: https://docs.expo.dev/push-notifications/sending-notifications/

import (
	"net/http"
	"os"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/medveille/veille-backend/notifier"
	Logger "github.com/medveille/veille-backend/utils/log"
)

const (
	expoPushURL = "https://exp.host/--/api/v2/push/send"
)

var Log = Logger.LogV2

type expoMessage struct {
	To    []string          `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
	Sound string            `json:"sound"`
}

// ExpoAdapter delivers digests through the Expo push service.
type ExpoAdapter struct {
	client *resty.Client
	url    string
}

var _ notifier.PushConsumer = &ExpoAdapter{}

func NewExpoAdapter() *ExpoAdapter {
	client := resty.New()
	if token := os.Getenv("EXPO_ACCESS_TOKEN"); token != "" {
		client.SetAuthToken(token)
	}
	return &ExpoAdapter{client: client, url: expoPushURL}
}

func (e *ExpoAdapter) PushDigest(job notifier.DigestJob) (*http.Response, error) {
	if len(job.Tokens) == 0 {
		return nil, nil
	}

	msg := expoMessage{
		To:    job.Tokens,
		Title: job.Title,
		Body:  job.Body,
		Sound: "default",
	}
	res, err := e.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(msg).
		Post(e.url)
	if err != nil {
		Log.Errorf("fail to call expo push API", err)
		return nil, err
	}
	if res.StatusCode() >= 300 {
		Log.Errorf("expo push API rejected digest", res.Status(), string(res.Body()))
		return res.RawResponse, errors.Errorf("expo push failed: %s", res.Status())
	}
	return res.RawResponse, nil
}
