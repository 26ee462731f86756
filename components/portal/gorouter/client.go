package gorouter

import (
	"net/http"
	"strings"

	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-insurance/components/portal/httpapi"
)

// ClientResolver returns the storage namespace of the browser behind ctx.
// An empty id means the browser has not been seen yet.
type ClientResolver func(router.Context) string

func defaultClientResolver(ctx router.Context) string {
	if id, ok := ctx.Locals(localsClientID).(string); ok && id != "" {
		return id
	}
	return cookieValue(ctx.Header("Cookie"), httpapi.ClientCookie)
}

const localsClientID = "portal_client_id"

// cookieValue extracts name from a raw Cookie header.
func cookieValue(header, name string) string {
	if strings.TrimSpace(header) == "" {
		return ""
	}
	cookies, err := http.ParseCookie(header)
	if err != nil {
		return ""
	}
	for _, cookie := range cookies {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}

// ensureClient returns the client id of ctx, issuing a cookie when the
// browser has none yet.
func ensureClient(ctx router.Context, resolver ClientResolver) string {
	if id := resolver(ctx); id != "" {
		return id
	}
	id := httpapi.NewClientID()
	ctx.SetHeader("Set-Cookie", clientCookie(id).String())
	ctx.Locals(localsClientID, id)
	return id
}

func clientCookie(id string) *http.Cookie {
	return &http.Cookie{
		Name:     httpapi.ClientCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
