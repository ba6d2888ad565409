package gateway

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront/internal/domain"
)

const (
	// AllCategories is the catalog's "all" filter; it is never forwarded.
	AllCategories = "الكل"

	DefaultSort  = "createdAt:desc"
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	DefaultBestSellingLimit = 4
)

// QueryError is a listing parameter the product API would reject.
type QueryError struct {
	Param string
	Value string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Param, e.Value)
}

func (e *QueryError) Is(target error) bool { return target == domain.ErrValidation }

// ListingQuery is a normalized product listing request.
type ListingQuery struct {
	Category string
	Gender   string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Search   string
	Sort     string
	Page     int
	Limit    int
}

// ParseListingQuery applies the listing defaults and drops empty filters and
// the "all" category.
func ParseListingQuery(q url.Values) (ListingQuery, error) {
	lq := ListingQuery{
		Gender: strings.TrimSpace(q.Get("gender")),
		Search: strings.TrimSpace(q.Get("search")),
		Sort:   strings.TrimSpace(q.Get("sort")),
		Page:   DefaultPage,
		Limit:  DefaultLimit,
	}
	if lq.Sort == "" {
		lq.Sort = DefaultSort
	}
	if c := strings.TrimSpace(q.Get("category")); c != AllCategories {
		lq.Category = c
	}

	var err error
	if lq.Page, err = positiveInt(q, "page", DefaultPage); err != nil {
		return ListingQuery{}, err
	}
	if lq.Limit, err = positiveInt(q, "limit", DefaultLimit); err != nil {
		return ListingQuery{}, err
	}
	if lq.Limit > MaxLimit {
		lq.Limit = MaxLimit
	}
	if lq.MinPrice, err = optionalPrice(q, "minPrice"); err != nil {
		return ListingQuery{}, err
	}
	if lq.MaxPrice, err = optionalPrice(q, "maxPrice"); err != nil {
		return ListingQuery{}, err
	}
	if lq.MinPrice != nil && lq.MaxPrice != nil && lq.MinPrice.GreaterThan(*lq.MaxPrice) {
		return ListingQuery{}, &QueryError{Param: "price range", Value: q.Get("minPrice") + "-" + q.Get("maxPrice")}
	}

	return lq, nil
}

// Values renders the query the product API expects.
func (lq ListingQuery) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(lq.Page))
	v.Set("limit", strconv.Itoa(lq.Limit))
	v.Set("sort", lq.Sort)
	if lq.Category != "" {
		v.Set("category", lq.Category)
	}
	if lq.Gender != "" {
		v.Set("gender", lq.Gender)
	}
	if lq.MinPrice != nil {
		v.Set("minPrice", lq.MinPrice.String())
	}
	if lq.MaxPrice != nil {
		v.Set("maxPrice", lq.MaxPrice.String())
	}
	if lq.Search != "" {
		v.Set("search", lq.Search)
	}
	return v
}

func positiveInt(q url.Values, param string, def int) (int, error) {
	raw := strings.TrimSpace(q.Get(param))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, &QueryError{Param: param, Value: raw}
	}
	return n, nil
}

func optionalPrice(q url.Values, param string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(q.Get(param))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return nil, &QueryError{Param: param, Value: raw}
	}
	return &d, nil
}
