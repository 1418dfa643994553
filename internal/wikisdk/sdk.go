package wikisdk

import (
	"fmt"
	"runtime"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/google/uuid"
	"github.com/imroc/req/v3"

	"github.com/wikisync/wikisync/internal/version"
)

const (
	HeaderWikiSyncVersion = "X-WikiSync-Version"
	HeaderClientID        = "X-WikiSync-Client-Id"
	HeaderRequestID       = "X-Request-Id"
)

var userAgent = fmt.Sprintf("WikiSync/%s (%s; %s; %s)", version.Version, version.Revision, runtime.GOOS, runtime.GOARCH)

// Client is the HTTP client for the wiki API.
type Client struct {
	http      *req.Client
	baseURL   string
	Documents *DocumentsAPI
}

// New creates a wiki API client for the given base URL. The token is sent as a
// bearer credential on every request.
func New(baseURL string, token string) (*Client, error) {
	if baseURL == "" {
		return nil, ErrNoServerURL
	}

	client := req.C().
		SetBaseURL(baseURL).
		SetCommonRetryCount(3).
		SetCommonRetryFixedInterval(1*time.Second).
		SetUserAgent(userAgent).
		SetCommonHeader(HeaderWikiSyncVersion, version.Version).
		SetCommonHeader(HeaderClientID, clientID()).
		SetCommonErrorResult(&APIError{}).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal).
		OnBeforeRequest(func(_ *req.Client, r *req.Request) error {
			r.SetHeader(HeaderRequestID, uuid.NewString())
			return nil
		})

	if token != "" {
		client.SetCommonBearerAuthToken(token)
	}

	return &Client{
		http:      client,
		baseURL:   baseURL,
		Documents: newDocumentsAPI(client),
	}, nil
}

// Close releases idle connections held by the client.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// clientID returns a stable, app-scoped machine identifier.
func clientID() string {
	id, err := machineid.ProtectedID("wikisync")
	if err != nil {
		return "unknown"
	}
	return id
}
