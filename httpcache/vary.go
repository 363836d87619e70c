package httpcache

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/goliatone/go-output-cache/cache"
)

// Headers read by VaryFromHeaders.
const (
	HeaderStoreID       = "X-Store-Id"
	HeaderLanguageID    = "X-Language-Id"
	HeaderCurrencyID    = "X-Currency-Id"
	HeaderTheme         = "X-Theme"
	HeaderCustomerRoles = "X-Customer-Roles"
)

// VaryFromHeaders reads the vary context from request headers. Invalid ids
// count as 0; roles are comma separated.
func VaryFromHeaders(r *http.Request) cache.VaryContext {
	v := cache.VaryContext{
		StoreID:    headerInt(r, HeaderStoreID),
		LanguageID: headerInt(r, HeaderLanguageID),
		CurrencyID: headerInt(r, HeaderCurrencyID),
		Theme:      strings.TrimSpace(r.Header.Get(HeaderTheme)),
	}
	for _, role := range strings.Split(r.Header.Get(HeaderCustomerRoles), ",") {
		if role = strings.TrimSpace(role); role != "" {
			v.CustomerRoles = append(v.CustomerRoles, role)
		}
	}
	return v
}

func headerInt(r *http.Request, name string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(r.Header.Get(name)), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
