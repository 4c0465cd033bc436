package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/csrf"
)

var testCSRFKey = bytes.Repeat([]byte{7}, 32)

func TestSecurityHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(whoAmI)).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	for _, h := range []string{"Content-Security-Policy", "X-Frame-Options", "X-Content-Type-Options", "Referrer-Policy"} {
		if rr.Header().Get(h) == "" {
			t.Errorf("missing %s", h)
		}
	}
}

func TestCSRF_RejectsFormPostWithoutToken(t *testing.T) {
	handler := CSRF(testCSRFKey, nil)(http.HandlerFunc(whoAmI))
	req := httptest.NewRequest("POST", "/menus/delete", strings.NewReader("id=m1&confirm=yes"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rr.Code)
	}
}

func TestCSRF_ExemptsJSON(t *testing.T) {
	handler := CSRF(testCSRFKey, nil)(http.HandlerFunc(whoAmI))
	req := httptest.NewRequest("POST", "/login", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

// A token issued on GET is accepted on the following form POST.
func TestCSRF_RoundTrip(t *testing.T) {
	var token string
	handler := CSRF(testCSRFKey, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = csrf.Token(r)
		w.Write([]byte("ok"))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/menus/new", nil))
	cookies := rr.Result().Cookies()
	if token == "" || len(cookies) == 0 {
		t.Fatalf("token %q cookies %d", token, len(cookies))
	}

	form := url.Values{CSRFFieldName: {token}, "date": {"2024-06-01"}}
	req := httptest.NewRequest("POST", "/menus/new", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(whoAmI), mark("a"), mark("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	if strings.Join(order, ",") != "b,a" {
		t.Errorf("order = %v, want last middleware outermost", order)
	}
}
