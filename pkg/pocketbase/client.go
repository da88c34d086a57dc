// Package pocketbase is a small client for the PocketBase collections API
// that holds the product catalogue and the user accounts.
package pocketbase

import (
	"context"
	"errors"
	"fmt"
	gohttp "net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/huertohogar/huerto/app/models"
	"github.com/huertohogar/huerto/config"
	"github.com/huertohogar/huerto/pkg/http"
	"github.com/huertohogar/huerto/pkg/metrics"
)

// ErrNetwork wraps failures where no HTTP response was received.
var ErrNetwork = errors.New("product service unreachable")

// HTTPError is a non-2xx answer from the service.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		body = "no details"
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, body)
}

// IsNotFound reports whether err is a 404 from the service.
func IsNotFound(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode == gohttp.StatusNotFound
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	Retries int
	// Token, when set, is sent as a bearer token on every call.
	Token string
	// HTTPClient overrides the shared pooled client, mostly for tests.
	HTTPClient *gohttp.Client
}

// Client talks to one PocketBase instance.
type Client struct {
	base    string
	timeout time.Duration
	retries int
	token   string
	http    *gohttp.Client
}

// New creates a Client. A trailing slash is added to the base URL.
func New(opts Options) *Client {
	base := opts.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return &Client{
		base:    base,
		timeout: opts.Timeout,
		retries: opts.Retries,
		token:   opts.Token,
		http:    opts.HTTPClient,
	}
}

// FromConfig builds a Client from API_BASE_URL, API_TOKEN, HTTP_TIMEOUT and
// HTTP_RETRIES.
func FromConfig() *Client {
	return New(Options{
		BaseURL: config.APIBaseURL(),
		Timeout: config.HTTPTimeout(),
		Retries: config.HTTPRetries(),
		Token:   config.APIToken(),
	})
}

// listPageSize is the largest page PocketBase serves.
const listPageSize = 500

type listResponse struct {
	Page       int              `json:"page"`
	PerPage    int              `json:"perPage"`
	TotalItems int              `json:"totalItems"`
	Items      []models.Product `json:"items"`
}

// Products returns every product record, following pagination. Image names
// are expanded to full file URLs.
func (c *Client) Products(ctx context.Context) ([]models.Product, error) {
	var all []models.Product
	for n := 1; ; n++ {
		q := url.Values{"page": {strconv.Itoa(n)}, "perPage": {strconv.Itoa(listPageSize)}}
		var page listResponse
		if err := c.call(ctx, "products.list", http.Get(c.url("collections/products/records", q)), &page); err != nil {
			return nil, err
		}
		for i := range page.Items {
			page.Items[i].ImageURL = c.imageURL(page.Items[i])
		}
		all = append(all, page.Items...)

		if len(page.Items) == 0 || page.PerPage <= 0 || n*page.PerPage >= page.TotalItems {
			break
		}
	}
	if all == nil {
		all = []models.Product{}
	}
	return all, nil
}

// Product fetches one product record with its current stock.
func (c *Client) Product(ctx context.Context, id string) (models.Product, error) {
	var p models.Product
	if err := c.call(ctx, "products.get", http.Get(c.url(productPath(id), nil)), &p); err != nil {
		return models.Product{}, err
	}
	p.ImageURL = c.imageURL(p)
	return p, nil
}

// UpdateStock writes the product's stock and returns the updated record.
func (c *Client) UpdateStock(ctx context.Context, id string, stock int) (models.Product, error) {
	return c.UpdateProduct(ctx, id, map[string]interface{}{"stock": stock})
}

// CreateProduct creates a product from a field map.
func (c *Client) CreateProduct(ctx context.Context, fields map[string]interface{}) (models.Product, error) {
	var p models.Product
	if err := c.call(ctx, "products.create", http.Post(c.url("collections/products/records", nil)).Body(fields), &p); err != nil {
		return models.Product{}, err
	}
	p.ImageURL = c.imageURL(p)
	return p, nil
}

// UpdateProduct patches the given fields of a product.
func (c *Client) UpdateProduct(ctx context.Context, id string, fields map[string]interface{}) (models.Product, error) {
	var p models.Product
	if err := c.call(ctx, "products.update", http.Patch(c.url(productPath(id), nil)).Body(fields), &p); err != nil {
		return models.Product{}, err
	}
	p.ImageURL = c.imageURL(p)
	return p, nil
}

// DeleteProduct removes a product.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.call(ctx, "products.delete", http.Delete(c.url(productPath(id), nil)), nil)
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (models.AuthResult, error) {
	var out models.AuthResult
	body := map[string]string{"identity": email, "password": password}
	err := c.call(ctx, "users.login", http.Post(c.url("collections/users/auth-with-password", nil)).Body(body), &out)
	return out, err
}

// Registration is the payload of a new account.
type Registration struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
	Name            string `json:"name"`
	Address         string `json:"address"`
	Phone           string `json:"phone"`
}

// Register creates a user record.
func (c *Client) Register(ctx context.Context, r Registration) (models.User, error) {
	var u models.User
	err := c.call(ctx, "users.register", http.Post(c.url("collections/users/records", nil)).Body(r), &u)
	return u, err
}

// UpdateUser patches the given fields of a user record.
func (c *Client) UpdateUser(ctx context.Context, id string, fields map[string]interface{}) (models.User, error) {
	var u models.User
	err := c.call(ctx, "users.update", http.Patch(c.url("collections/users/records/"+url.PathEscape(id), nil)).Body(fields), &u)
	return u, err
}

// FileURL builds the public URL of a record file, or "" when any part is
// missing.
func FileURL(base, collectionID, recordID, file string) string {
	if strings.TrimSpace(collectionID) == "" || strings.TrimSpace(recordID) == "" || strings.TrimSpace(file) == "" {
		return ""
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + "files/" + collectionID + "/" + recordID + "/" + file
}

func (c *Client) imageURL(p models.Product) string {
	if strings.HasPrefix(p.ImageURL, "http://") || strings.HasPrefix(p.ImageURL, "https://") {
		return p.ImageURL
	}
	return FileURL(c.base, p.CollectionID, p.ID, p.ImageURL)
}

func productPath(id string) string {
	return "collections/products/records/" + url.PathEscape(id)
}

func (c *Client) url(path string, q url.Values) string {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (c *Client) call(ctx context.Context, op string, req *http.Request, dest interface{}) error {
	resp, err := req.
		Bearer(c.token).
		Timeout(c.timeout).
		Retry(c.retries, 300*time.Millisecond).
		WithContext(ctx).
		Using(c.http).
		Send()
	if err != nil {
		metrics.RemoteCalls.WithLabelValues(op, "network").Inc()
		return fmt.Errorf("pocketbase: %s: %w: %w", op, ErrNetwork, err)
	}
	metrics.RemoteCalls.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

	if !resp.OK() {
		return fmt.Errorf("pocketbase: %s: %w", op, &HTTPError{StatusCode: resp.StatusCode, Body: resp.Text()})
	}
	if dest == nil || len(resp.Raw) == 0 {
		return nil
	}
	if err := resp.JSON(dest); err != nil {
		return fmt.Errorf("pocketbase: %s: %w", op, err)
	}
	return nil
}
