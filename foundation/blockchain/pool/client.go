package pool

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
	"github.com/ardanlabs/poolchain/foundation/blockchain/peer"
	"github.com/btcsuite/go-socks/socks"
)

// defaultTimeout bounds every request made to a peer when no timeout is
// configured.
const defaultTimeout = 5 * time.Second

// Set of routes peers expose for the pool protocol.
const (
	routePropose  = "/blockchain/mine/propose"
	routeInitiate = "/blockchain/mine/initiate"
	routeAbort    = "/blockchain/mine/abort"
	routeSubmit   = "/blockchain/block/submit"
	routeStatus   = "/blockchain/node/status"
	routeRegister = "/blockchain/node/register"
)

// StatusError is returned when a peer answers with an unexpected status.
type StatusError struct {
	Host       string
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (se *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", se.Host, se.StatusCode, se.Message)
}

// ClientConfig represents the settings for the peer client.
type ClientConfig struct {
	Timeout            time.Duration
	Build              string
	Proxy              string
	ProxyUser          string
	ProxyPass          string
	InsecureSkipVerify bool
}

// Client makes pool protocol requests to peers over HTTP with a bounded
// timeout on every request.
type Client struct {
	http      *http.Client
	userAgent string
}

// NewClient constructs a client for talking to peers. When a proxy is
// configured every connection is dialed through the SOCKS5 proxy.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	transport := http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSHandshakeTimeout: timeout,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
	}

	switch cfg.Proxy {
	case "":
		dialer := net.Dialer{Timeout: timeout}
		transport.DialContext = dialer.DialContext

	default:
		proxy := socks.Proxy{
			Addr:     cfg.Proxy,
			Username: cfg.ProxyUser,
			Password: cfg.ProxyPass,
		}
		transport.Proxy = nil
		transport.DialContext = func(ctx context.Context, network string, addr string) (net.Conn, error) {
			return proxy.DialTimeout(network, addr, timeout)
		}
	}

	build := cfg.Build
	if build == "" {
		build = "develop"
	}

	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: &transport,
		},
		userAgent: fmt.Sprintf("poolchain/%s", build),
	}
}

// Propose sends the proposal to the peer. The peer accepts only by
// answering with a 200.
func (c *Client) Propose(ctx context.Context, pr peer.Peer, proposal Proposal) error {
	return c.send(ctx, http.MethodPost, pr, routePropose, proposal, nil)
}

// Initiate tells the peer to start mining its assigned offset.
func (c *Client) Initiate(ctx context.Context, pr peer.Peer, initiation Initiation) error {
	return c.send(ctx, http.MethodPost, pr, routeInitiate, initiation, nil)
}

// Abort tells the peer to stop mining the template.
func (c *Client) Abort(ctx context.Context, pr peer.Peer, hash string) error {
	return c.send(ctx, http.MethodPost, pr, routeAbort, Abort{Hash: hash}, nil)
}

// SubmitBlock sends a mined block to the peer. A peer that already has the
// block is not an error.
func (c *Client) SubmitBlock(ctx context.Context, pr peer.Peer, block database.Block) error {
	err := c.send(ctx, http.MethodPost, pr, routeSubmit, block, nil)

	var se *StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusAlreadyReported {
		return nil
	}

	return err
}

// Status asks the peer for its current status.
func (c *Client) Status(ctx context.Context, pr peer.Peer) (peer.PeerStatus, error) {
	var ps peer.PeerStatus
	if err := c.send(ctx, http.MethodGet, pr, routeStatus, nil, &ps); err != nil {
		return peer.PeerStatus{}, err
	}

	return ps, nil
}

// Register tells the peer about this node.
func (c *Client) Register(ctx context.Context, pr peer.Peer, self peer.Peer) error {
	return c.send(ctx, http.MethodPost, pr, routeRegister, self, nil)
}

// =============================================================================

// send is a helper function to send an HTTP request to a node.
func (c *Client) send(ctx context.Context, method string, pr peer.Peer, route string, dataSend any, dataRecv any) error {
	url := pr.BaseURL() + route

	var body io.Reader
	if dataSend != nil {
		data, err := json.Marshal(dataSend)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}

	req.Header.Set("User-Agent", c.userAgent)
	if dataSend != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Only a 200 is an answer from a node. Anything else, a 204 from a proxy
	// included, is refused.
	if resp.StatusCode != http.StatusOK {
		msg, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err != nil {
			return err
		}
		return &StatusError{Host: pr.Host, StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(msg))}
	}

	if dataRecv != nil {
		if err := json.NewDecoder(resp.Body).Decode(dataRecv); err != nil {
			return err
		}
	}

	return nil
}
