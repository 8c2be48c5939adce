package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"marketplace-core/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Client — HTTP-клиент сервиса каталога. Инкапсулирует маппинг
// JSON-ответов каталога в service.CatalogProduct.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

func NewClient(baseURL string, log *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
		log:     log,
	}
}

type productResponse struct {
	ProductID  uuid.UUID `json:"product_id"`
	Name       string    `json:"name"`
	SKU        string    `json:"sku"`
	PriceCents int64     `json:"price_cents"`
	SellerID   uuid.UUID `json:"seller_id"`
	SellerName string    `json:"seller_name"`
	ImageURL   string    `json:"image_url"`
	Active     bool      `json:"active"`
}

func (r productResponse) toDomain() service.CatalogProduct {
	return service.CatalogProduct{
		ProductID:      r.ProductID,
		Name:           r.Name,
		SKU:            r.SKU,
		UnitPriceCents: r.PriceCents,
		SellerID:       r.SellerID,
		SellerName:     r.SellerName,
		ImageURL:       r.ImageURL,
		Active:         r.Active,
	}
}

func (c *Client) GetProduct(ctx context.Context, productID uuid.UUID) (*service.CatalogProduct, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/internal/products/"+productID.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var pr productResponse
		if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
			return nil, fmt.Errorf("catalog response decode: %w", err)
		}
		p := pr.toDomain()
		return &p, nil
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}
}

// GetProducts — батч-запрос по списку id. Отсутствующих товаров в ответе нет,
// вызывающий сам решает, что делать с дыркой в map.
func (c *Client) GetProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]service.CatalogProduct, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]service.CatalogProduct{}, nil
	}

	strIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		strIDs = append(strIDs, id.String())
	}
	q := url.Values{"ids": []string{strings.Join(strIDs, ",")}}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/internal/products?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var list []productResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("catalog response decode: %w", err)
	}
	out := make(map[uuid.UUID]service.CatalogProduct, len(list))
	for _, pr := range list {
		out[pr.ProductID] = pr.toDomain()
	}
	return out, nil
}
