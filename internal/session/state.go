// Package session holds the per-browser navigation state and the pure
// transition function that drives every page change.
package session

import (
	"errors"
	"fmt"
	"strings"

	"oahushop/internal/models"
)

// Page is the logical page a session is on.
type Page string

const (
	PageHome    Page = "home"
	PageDetail  Page = "detail"
	PageInquiry Page = "inquiry"
	PageLogin   Page = "login"
	PageAdmin   Page = "admin"
)

// Valid reports whether p is one of the known pages.
func (p Page) Valid() bool {
	switch p {
	case PageHome, PageDetail, PageInquiry, PageLogin, PageAdmin:
		return true
	}
	return false
}

// State is one browser session. Selected is the folder id of the product
// shown on the detail page, empty when none.
type State struct {
	Page          Page   `json:"page"`
	Authenticated bool   `json:"authenticated"`
	Selected      string `json:"selected,omitempty"`
}

// Initial returns the state every new session starts in.
func Initial() State {
	return State{Page: PageHome}
}

func (s State) normalized() State {
	if !s.Page.Valid() {
		s.Page = PageHome
	}
	return s
}

var (
	// ErrInvalidCredentials is returned when a login attempt does not match the admin account.
	ErrInvalidCredentials = errors.New("아이디 또는 비밀번호가 올바르지 않습니다.")
	// ErrIllegalTransition is returned for an in-page event sent from another page.
	ErrIllegalTransition = errors.New("session: event not allowed on current page")
)

// MissingFieldError names the first required inquiry field left blank.
type MissingFieldError struct {
	Field models.FormField
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("필수 항목을 입력해 주세요: %s", e.Field.Label)
}

// EventKind enumerates user actions.
type EventKind int

const (
	EventNavigate EventKind = iota + 1
	EventSelectProduct
	EventBack
	EventOpenAdmin
	EventSubmitCredentials
	EventCancel
	EventLogout
	EventOpenInquiry
	EventSubmitInquiry
)

var eventNames = map[EventKind]string{
	EventNavigate:          "navigate",
	EventSelectProduct:     "select_product",
	EventBack:              "back",
	EventOpenAdmin:         "open_admin",
	EventSubmitCredentials: "submit_credentials",
	EventCancel:            "cancel",
	EventLogout:            "logout",
	EventOpenInquiry:       "open_inquiry",
	EventSubmitInquiry:     "submit_inquiry",
}

func (k EventKind) String() string {
	if n, ok := eventNames[k]; ok {
		return n
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event is a user action. Only the fields relevant to Kind are set; use the
// constructors below.
type Event struct {
	Kind      EventKind
	Page      Page
	ProductID string
	Valid     bool
	Schema    []models.FormField
	Values    map[string]string
}

func Navigate(p Page) Event { return Event{Kind: EventNavigate, Page: p} }
func SelectProduct(id string) Event { return Event{Kind: EventSelectProduct, ProductID: id} }
func Back() Event { return Event{Kind: EventBack} }
func OpenAdmin() Event { return Event{Kind: EventOpenAdmin} }
func SubmitCredentials(ok bool) Event { return Event{Kind: EventSubmitCredentials, Valid: ok} }
func Cancel() Event { return Event{Kind: EventCancel} }
func Logout() Event { return Event{Kind: EventLogout} }
func OpenInquiry() Event { return Event{Kind: EventOpenInquiry} }

// SubmitInquiry carries the form schema in effect and the submitted values.
func SubmitInquiry(schema []models.FormField, values map[string]string) Event {
	return Event{Kind: EventSubmitInquiry, Schema: schema, Values: values}
}

// Effect is a side effect the caller must execute after a transition.
type Effect interface {
	effect()
}

// AppendInquiry asks the caller to store one inquiry. Values holds one entry
// per schema field.
type AppendInquiry struct {
	Values map[string]string
}

func (AppendInquiry) effect() {}

// Outcome is the result of a transition. On error State still holds the state
// to render, which for every error is the unchanged input state.
type Outcome struct {
	State   State
	Effects []Effect
	Err     error
}

func stay(s State, err error) Outcome {
	return Outcome{State: s, Err: err}
}

func move(s State) Outcome {
	return Outcome{State: s}
}

// Transition applies e to s. It has no side effects.
//
// Entry events (Navigate, SelectProduct, OpenAdmin, OpenInquiry) are accepted
// from any page since every page has its own URL. In-page events are only
// accepted on the page that offers them.
func Transition(s State, e Event) Outcome {
	s = s.normalized()

	switch e.Kind {
	case EventNavigate:
		return navigate(s, e.Page)

	case EventSelectProduct:
		if e.ProductID == "" {
			return navigate(s, PageHome)
		}
		s.Page = PageDetail
		s.Selected = e.ProductID
		return move(s)

	case EventOpenAdmin:
		s.Page = PageLogin
		s.Selected = ""
		return move(s)

	case EventOpenInquiry:
		s.Page = PageInquiry
		s.Selected = ""
		return move(s)

	case EventBack:
		switch s.Page {
		case PageDetail:
			s.Page = PageHome
			s.Selected = ""
			return move(s)
		case PageAdmin:
			s.Page = PageHome
			return move(s)
		}
		return stay(s, ErrIllegalTransition)

	case EventCancel:
		if s.Page != PageLogin && s.Page != PageInquiry {
			return stay(s, ErrIllegalTransition)
		}
		s.Page = PageHome
		return move(s)

	case EventLogout:
		if s.Page != PageAdmin {
			return stay(s, ErrIllegalTransition)
		}
		s.Page = PageHome
		s.Authenticated = false
		return move(s)

	case EventSubmitCredentials:
		if s.Page != PageLogin {
			return stay(s, ErrIllegalTransition)
		}
		if !e.Valid {
			return stay(s, ErrInvalidCredentials)
		}
		s.Page = PageAdmin
		s.Authenticated = true
		return move(s)

	case EventSubmitInquiry:
		if s.Page != PageInquiry {
			return stay(s, ErrIllegalTransition)
		}
		values, missing := collect(e.Schema, e.Values)
		if missing != nil {
			return stay(s, &MissingFieldError{Field: *missing})
		}
		s.Page = PageHome
		return Outcome{State: s, Effects: []Effect{AppendInquiry{Values: values}}}
	}

	return stay(s, ErrIllegalTransition)
}

func navigate(s State, p Page) Outcome {
	switch p {
	case PageHome:
		s.Page = PageHome
		s.Selected = ""
	case PageDetail:
		if s.Selected == "" {
			s.Page = PageHome
		} else {
			s.Page = PageDetail
		}
	case PageAdmin:
		s.Selected = ""
		if s.Authenticated {
			s.Page = PageAdmin
		} else {
			s.Page = PageLogin
		}
	case PageLogin, PageInquiry:
		s.Page = p
		s.Selected = ""
	default:
		return stay(s, ErrIllegalTransition)
	}
	return move(s)
}

// collect trims the submitted values in schema order and returns the first
// required field left blank.
func collect(schema []models.FormField, submitted map[string]string) (map[string]string, *models.FormField) {
	values := make(map[string]string, len(schema))
	for i := range schema {
		f := schema[i]
		v := strings.TrimSpace(submitted[f.ID])
		if f.Required && v == "" {
			return nil, &f
		}
		values[f.ID] = v
	}
	return values, nil
}
