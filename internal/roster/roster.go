// internal/roster/roster.go
package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nvelasco/karmacourt/internal/protocol"
)

// Client fetches the connected-participant roster for an activity instance
// on demand. The roster is presentation data only; the authoritative
// snapshot never depends on it.
type Client struct {
	baseURL string
	httpc   *http.Client
	log     *logrus.Logger
}

func New(baseURL string, logger *logrus.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 10 * time.Second},
		log:     logger,
	}
}

type participantsResponse struct {
	Participants []protocol.Participant `json:"participants"`
}

// Participants returns the current roster, guaranteeing self appears in the
// result. A failed lookup degrades to a single-entry roster containing only
// self; the failure is logged, not returned.
func (c *Client) Participants(ctx context.Context, instanceID string, self protocol.Participant) []protocol.Participant {
	list, err := c.fetch(ctx, instanceID)
	if err != nil {
		c.log.Warnf("roster: lookup failed, falling back to self only: %v", err)
		return []protocol.Participant{self}
	}
	for _, p := range list {
		if p.ID == self.ID {
			return list
		}
	}
	return append(list, self)
}

func (c *Client) fetch(ctx context.Context, instanceID string) ([]protocol.Participant, error) {
	u := fmt.Sprintf("%s/api/participants?instance_id=%s", c.baseURL, url.QueryEscape(instanceID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var pr participantsResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return pr.Participants, nil
}
