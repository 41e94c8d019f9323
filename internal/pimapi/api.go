package pimapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"PimSync/internal/cache"
	"PimSync/internal/pimapi/models"
	"PimSync/internal/pimapi/options"
	"PimSync/internal/syncerr"
	"PimSync/internal/version"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const systemName = "PIM"

type PIMAPI interface {
	Authenticate(ctx context.Context) error
	TestConnection(ctx context.Context) bool
	Request(ctx context.Context, method, endpoint string, body interface{}, useAuth bool, out interface{}) error

	GetCatalogs(ctx context.Context) ([]*models.Catalog, error)
	InvalidateCatalogs()
	GetCategories(ctx context.Context, catalogID string) ([]*models.Category, error)
	GetProducts(ctx context.Context, catalogID string, page, size int) ([]*models.Product, error)
	GetAllProducts(ctx context.Context, catalogID string) ([]*models.Product, error)
	GetChangedProducts(ctx context.Context, catalogID string, sinceDays int) ([]*models.Product, error)
}

type Options struct {
	URL            string
	Login          string
	Password       string
	APIVersion     string
	TokenLifetime  time.Duration
	CacheLifetime  time.Duration
	Timeout        time.Duration
	ConnectTimeout time.Duration
	RetryCount     int
	RetryWait      time.Duration
	RetryMaxWait   time.Duration
	PageSize       int
	// Now источник времени, подменяется в тестах
	Now func() time.Time
}

type pimapi struct {
	opts   Options
	client *resty.Client
	logger logrus.FieldLogger

	mu           sync.Mutex
	token        string
	tokenExpires time.Time

	catalogs *cache.Catalogs
}

func NewAPI(opts Options, logger logrus.FieldLogger) PIMAPI {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.APIVersion == "" {
		opts.APIVersion = "v1"
	}
	if opts.TokenLifetime <= 0 {
		opts.TokenLifetime = 55 * time.Minute
	}
	if opts.CacheLifetime <= 0 {
		opts.CacheLifetime = time.Hour
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = 500 * time.Millisecond
	}
	if opts.RetryMaxWait <= 0 {
		opts.RetryMaxWait = 5 * time.Second
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.URL, "/")).
		SetTimeout(opts.Timeout).
		SetTransport(&http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         (&net.Dialer{Timeout: opts.ConnectTimeout}).DialContext,
			TLSHandshakeTimeout: opts.ConnectTimeout,
		}).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(3)).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", version.GetVersion().UserAgent()).
		SetHeader("X-PIM-Version", opts.APIVersion).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(opts.RetryMaxWait).
		AddRetryCondition(retryCondition)

	return &pimapi{
		opts:     opts,
		client:   client,
		logger:   logger,
		catalogs: cache.NewCatalogs(opts.CacheLifetime, opts.Now),
	}
}

// retryCondition повторяем только сетевые ошибки и 5xx.
func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return r.StatusCode() >= http.StatusInternalServerError
}

// Authenticate получает bearer-токен по логину и паролю.
func (p *pimapi) Authenticate(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.authenticateLocked(ctx)
}

func (p *pimapi) authenticateLocked(ctx context.Context) error {
	p.logger.Debug("Start PIM Authenticate")
	defer p.logger.Debug("End PIM Authenticate")

	issuedAt := p.opts.Now()

	body, err := p.send(ctx, http.MethodPost, "/sign-in/", models.SignInRequest{
		Login:    p.opts.Login,
		Password: p.opts.Password,
		Remember: true,
	}, "")
	if err != nil {
		if code := syncerr.StatusCode(err); code == http.StatusUnauthorized || code == http.StatusForbidden {
			err = &syncerr.AuthError{System: systemName, Message: err.Error()}
		}
		p.logger.Errorf("Ошибка авторизации в PIM API: %v", err)
		return errors.Wrap(err, "failed in PIM sign-in")
	}

	var response models.SignInResponse
	err = json.Unmarshal(body, &response)
	if err != nil {
		return &syncerr.DecodeError{URL: "/sign-in/", Body: string(body), Err: err}
	}

	if !response.Success {
		message := "PIM API authentication failed"
		if response.Message != "" {
			message += ": " + response.Message
		}
		p.logger.Errorf("Ошибка авторизации в PIM API: %s", message)
		return &syncerr.AuthError{System: systemName, Message: message}
	}

	if response.Data.Access.Token == "" {
		p.logger.Error("Ошибка авторизации в PIM API: token not found in response")
		return &syncerr.AuthError{System: systemName, Message: "token not found in response"}
	}

	p.token = response.Data.Access.Token
	p.tokenExpires = issuedAt.Add(p.opts.TokenLifetime)
	p.logger.Info("Успешная авторизация в PIM API")
	p.logger.Debugf("Токен получен, срок действия: %s", p.tokenExpires.Format("2006-01-02 15:04:05"))

	return nil
}

// bearer возвращает действующий токен, при необходимости авторизуется заново.
func (p *pimapi) bearer(ctx context.Context, force bool) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if force || p.token == "" || !p.opts.Now().Before(p.tokenExpires) {
		p.logger.Debug("Токен отсутствует или истек, запрашиваем новый")
		p.token = ""
		err := p.authenticateLocked(ctx)
		if err != nil {
			return "", err
		}
	}
	return p.token, nil
}

func (p *pimapi) TestConnection(ctx context.Context) bool {
	_, err := p.bearer(ctx, true)
	if err != nil {
		p.logger.Errorf("Ошибка проверки соединения с PIM API: %v", err)
		return false
	}
	return true
}

// Request выполняет запрос и раскладывает JSON в out. При useAuth токен
// подставляется автоматически, на 401 выполняется одна повторная авторизация.
func (p *pimapi) Request(ctx context.Context, method, endpoint string, body interface{}, useAuth bool, out interface{}) error {
	var token string
	var err error
	if useAuth {
		token, err = p.bearer(ctx, false)
		if err != nil {
			return err
		}
	}

	respBody, err := p.send(ctx, method, endpoint, body, token)
	if useAuth && syncerr.StatusCode(err) == http.StatusUnauthorized {
		p.logger.Warnf("PIM API вернул 401 на %s, повторная авторизация", endpoint)
		token, err = p.bearer(ctx, true)
		if err != nil {
			return err
		}
		respBody, err = p.send(ctx, method, endpoint, body, token)
		if syncerr.StatusCode(err) == http.StatusUnauthorized {
			return &syncerr.AuthError{System: systemName, Message: err.Error()}
		}
	}
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	err = json.Unmarshal(respBody, out)
	if err != nil {
		return &syncerr.DecodeError{URL: endpoint, Body: string(respBody), Err: err}
	}
	return nil
}

func (p *pimapi) send(ctx context.Context, method, endpoint string, body interface{}, token string) ([]byte, error) {
	p.logger.Debugf("API запрос: %s %s", method, endpoint)

	req := p.client.R().SetContext(ctx)
	if token != "" {
		req.SetAuthToken(token)
	}
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to send request to PIM API, endpoint: %s", endpoint)
	}

	respBody := resp.Body()
	p.logger.Debugf("API ответ: HTTP %d, длина: %d", resp.StatusCode(), len(respBody))

	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, &syncerr.HttpError{
			Method:     method,
			URL:        endpoint,
			StatusCode: resp.StatusCode(),
			Body:       string(respBody),
		}
	}

	return respBody, nil
}

// getData запрос с конвертом {success, data}.
func (p *pimapi) getData(ctx context.Context, endpoint string) (json.RawMessage, error) {
	var response models.Response
	err := p.Request(ctx, http.MethodGet, endpoint, nil, true, &response)
	if err != nil {
		return nil, err
	}
	if !response.Success {
		return nil, errors.Errorf("PIM API returned success=false for %s: %s", endpoint, response.Message)
	}
	return response.Data, nil
}

func (p *pimapi) GetCatalogs(ctx context.Context) ([]*models.Catalog, error) {
	if catalogs, ok := p.catalogs.Get(); ok {
		p.logger.Debug("Каталоги PIM взяты из кеша")
		return catalogs, nil
	}

	endpoint := fmt.Sprintf("/api/%s/catalogs", p.opts.APIVersion)
	data, err := p.getData(ctx, endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "failed in GetCatalogs")
	}

	var catalogs []*models.Catalog
	err = json.Unmarshal(data, &catalogs)
	if err != nil {
		return nil, &syncerr.DecodeError{URL: endpoint, Body: string(data), Err: err}
	}

	p.catalogs.Set(catalogs)
	return catalogs, nil
}

func (p *pimapi) InvalidateCatalogs() {
	p.catalogs.Invalidate()
}

// GetCategories возвращает корневые узлы дерева категорий каталога.
// PIM отдает либо массив корней, либо единственный корень объектом.
func (p *pimapi) GetCategories(ctx context.Context, catalogID string) ([]*models.Category, error) {
	endpoint := fmt.Sprintf("/api/%s/catalogs/%s/categories", p.opts.APIVersion, url.PathEscape(catalogID))
	data, err := p.getData(ctx, endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "failed in GetCategories(%s)", catalogID)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	var roots []*models.Category
	if data[0] == '{' {
		var root models.Category
		err = json.Unmarshal(data, &root)
		roots = []*models.Category{&root}
	} else {
		err = json.Unmarshal(data, &roots)
	}
	if err != nil {
		return nil, &syncerr.DecodeError{URL: endpoint, Body: string(data), Err: err}
	}

	return roots, nil
}

func (p *pimapi) productsEndpoint(catalogID string, opts ...options.Option) string {
	endpoint := fmt.Sprintf("/api/%s/catalogs/%s/products", p.opts.APIVersion, url.PathEscape(catalogID))
	if len(opts) > 0 {
		endpoint += "?" + options.Values(opts...).Encode()
	}
	return endpoint
}

func (p *pimapi) listProducts(ctx context.Context, endpoint string) ([]*models.Product, error) {
	data, err := p.getData(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var list models.ProductListData
	err = json.Unmarshal(data, &list)
	if err != nil {
		return nil, &syncerr.DecodeError{URL: endpoint, Body: string(data), Err: err}
	}
	return list.ProductElasticDtos, nil
}

func (p *pimapi) GetProducts(ctx context.Context, catalogID string, page, size int) ([]*models.Product, error) {
	endpoint := p.productsEndpoint(catalogID, options.Page(page), options.Limit(size))
	products, err := p.listProducts(ctx, endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "failed in GetProducts(%s), page:%d, size:%d", catalogID, page, size)
	}
	return products, nil
}

func (p *pimapi) GetAllProducts(ctx context.Context, catalogID string) ([]*models.Product, error) {
	p.logger.Debug("Start GetAllProducts")
	defer p.logger.Debug("End GetAllProducts")

	return p.paginate(ctx, func(page int) string {
		return p.productsEndpoint(catalogID, options.Page(page), options.Limit(p.opts.PageSize))
	})
}

// GetChangedProducts товары, измененные начиная с (сегодня - sinceDays), включительно.
func (p *pimapi) GetChangedProducts(ctx context.Context, catalogID string, sinceDays int) ([]*models.Product, error) {
	p.logger.Debug("Start GetChangedProducts")
	defer p.logger.Debug("End GetChangedProducts")

	cutoff := ChangedSinceDate(p.opts.Now(), sinceDays)
	p.logger.Infof("Delta-синхронизация: изменения начиная с %s", cutoff.Format("2006-01-02"))

	return p.paginate(ctx, func(page int) string {
		return p.productsEndpoint(catalogID,
			options.ChangedSince(cutoff),
			options.Limit(p.opts.PageSize),
			options.Page(page))
	})
}

// paginate листает страницы до пустой или неполной.
func (p *pimapi) paginate(ctx context.Context, endpointForPage func(page int) string) ([]*models.Product, error) {
	var products []*models.Product
	for page := 1; ; page++ {
		endpoint := endpointForPage(page)
		chunk, err := p.listProducts(ctx, endpoint)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load products, page:%d", page)
		}

		products = append(products, chunk...)
		p.logger.Debugf("Page load:%d, products:%d", page, len(chunk))

		if len(chunk) < p.opts.PageSize {
			break
		}
	}
	return products, nil
}

// ChangedSinceDate дата отсечки delta-синхронизации без времени.
func ChangedSinceDate(now time.Time, days int) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d-days, 0, 0, 0, 0, now.Location())
}
