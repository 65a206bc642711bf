// Package feedclient talks to the API as an owner: REST calls for
// snapshots and writes, a websocket for the change feed. It backs the
// terminal dashboard.
package feedclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"food-ordering/api/dashboard"
	"food-ordering/api/models"
	"food-ordering/api/realtime"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	dialer  *websocket.Dialer
	buffer  int
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
		dialer:  websocket.DefaultDialer,
		buffer:  64,
	}
}

// APIError is a non-2xx response carrying the server's error message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return &APIError{Status: resp.StatusCode, Message: payload.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) Orders(ctx context.Context, restaurantID string) ([]*models.Order, error) {
	var orders []*models.Order
	err := c.do(ctx, http.MethodGet, "/api/v1/restaurants/"+url.PathEscape(restaurantID)+"/orders", nil, &orders)
	return orders, err
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	var order models.Order
	body := map[string]models.OrderStatus{"status": status}
	if err := c.do(ctx, http.MethodPatch, "/api/v1/orders/"+url.PathEscape(id)+"/status", body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) Menu(ctx context.Context, restaurantID string) ([]*models.MenuItem, error) {
	var items []*models.MenuItem
	err := c.do(ctx, http.MethodGet, "/api/v1/restaurants/"+url.PathEscape(restaurantID)+"/menu", nil, &items)
	return items, err
}

func (c *Client) CreateMenuItem(ctx context.Context, in models.MenuItemInput) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := c.do(ctx, http.MethodPost, "/api/v1/menu", in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) UpdateMenuItem(ctx context.Context, id string, in models.MenuItemInput) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := c.do(ctx, http.MethodPut, "/api/v1/menu/"+url.PathEscape(id), in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) SetAvailability(ctx context.Context, id string, available bool) (*models.MenuItem, error) {
	var item models.MenuItem
	body := map[string]bool{"is_available": available}
	if err := c.do(ctx, http.MethodPost, "/api/v1/menu/"+url.PathEscape(id)+"/toggle", body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) DeleteMenuItem(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/menu/"+url.PathEscape(id), nil, nil)
}

func (c *Client) SubscribeOrders(ctx context.Context, restaurantID string) (dashboard.Feed, error) {
	return c.subscribe(ctx, realtime.TableOrders, restaurantID)
}

func (c *Client) SubscribeMenu(ctx context.Context, restaurantID string) (dashboard.Feed, error) {
	return c.subscribe(ctx, realtime.TableMenuItems, restaurantID)
}

func (c *Client) feedURL(table realtime.Table, restaurantID string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/changes"
	q := url.Values{}
	q.Set("table", string(table))
	q.Set("restaurant_id", restaurantID)
	if c.token != "" {
		q.Set("token", c.token)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) subscribe(ctx context.Context, table realtime.Table, restaurantID string) (dashboard.Feed, error) {
	target, err := c.feedURL(table, restaurantID)
	if err != nil {
		return nil, err
	}
	conn, resp, err := c.dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			return nil, &APIError{Status: resp.StatusCode, Message: err.Error()}
		}
		return nil, fmt.Errorf("dial change feed: %w", err)
	}

	f := &wsFeed{conn: conn, ch: make(chan realtime.Event, c.buffer), done: make(chan struct{})}
	go f.read()
	return f, nil
}

// wsFeed reads events off a websocket until it is closed.
type wsFeed struct {
	conn *websocket.Conn
	ch   chan realtime.Event
	done chan struct{}
	once sync.Once
}

func (f *wsFeed) Events() <-chan realtime.Event { return f.ch }

func (f *wsFeed) read() {
	defer close(f.ch)
	for {
		var e realtime.Event
		if err := f.conn.ReadJSON(&e); err != nil {
			select {
			case <-f.done:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) && !errors.Is(err, io.EOF) {
					log.Printf("Change feed closed: %v", err)
				}
			}
			return
		}
		select {
		case f.ch <- e:
		case <-f.done:
			return
		}
	}
}

func (f *wsFeed) Close() {
	f.once.Do(func() {
		close(f.done)
		_ = f.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		f.conn.Close()
	})
}

var (
	_ dashboard.OrderSource = (*Client)(nil)
	_ dashboard.MenuSource  = (*Client)(nil)
)
