// components/credits/credits.go
//
// Credits: balance, transaction history, and subscription changes.
//
// Context
// -------
// Both views are cached per session like any other slice.  Changing the
// subscription is an administrator action and drops both cached views of
// the session.
//
//------------------------------------------------------------------------------

package credits

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/campus/internal/account"
	"github.com/yanizio/campus/internal/acl"
	"github.com/yanizio/campus/internal/component"
	"github.com/yanizio/campus/internal/form"
	"github.com/yanizio/campus/internal/scope"
	"github.com/yanizio/campus/internal/slice"
)

// Upstream paths.
const (
	balancePath      = "/credits"
	transactionsPath = "/credits/transactions"
	subscriptionPath = "/credits/subscription"
)

// Balance is the current credit state.
type Balance struct {
	Credits  int64      `json:"credits"`
	Plan     string     `json:"plan"`
	RenewsAt *time.Time `json:"renews_at,omitempty"`
}

// Transaction is one credit movement.
type Transaction struct {
	ID          string    `json:"id"`
	Amount      int64     `json:"amount"`
	Kind        string    `json:"kind"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Subscription is a plan change request.
type Subscription struct {
	Plan  string `json:"plan"  validate:"required,oneof=basic standard premium"`
	Seats int    `json:"seats" validate:"gte=1"`
}

type balanceView struct {
	Balance
	CreditsDisplay string `json:"credits_display"`
	RenewsOn       string `json:"renews_on,omitempty"`
}

type transactionView struct {
	Transaction
	AmountDisplay string `json:"amount_display"`
	Date          string `json:"date"`
}

var _ component.Component = (*Component)(nil)

// Component serves /api/credits.
type Component struct {
	d       component.Deps
	balance *slice.Item[Balance]
	history *slice.Slice[Transaction]
}

func init() { component.Register(&Component{}) }

func (c *Component) Name() string { return "credits" }

func (c *Component) Init(d component.Deps) error {
	if d.Config == nil || d.Upstream == nil || d.Slices == nil {
		return errors.New("credits: config, upstream and slices are required")
	}
	c.d = d
	c.balance = slice.NewItem[Balance]("credits_balance", balancePath, d.Upstream, d.Config.Cache.TTL)
	c.history = slice.New[Transaction]("credits_transactions", transactionsPath, d.Upstream, d.Config.Cache.TTL)
	d.Slices.Add(c.balance)
	d.Slices.Add(c.history)
	return nil
}

func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/api/credits", func(r chi.Router) {
		r.Use(acl.RequireSession)
		r.Get("/", c.getBalance)
		r.Get("/transactions", c.getTransactions)
		r.With(acl.RequireRole(account.RoleAdministrator)).
			Post("/subscription", c.postSubscription)
	})
	return r
}

func (c *Component) getBalance(w http.ResponseWriter, r *http.Request) {
	b, err := c.balance.Get(r.Context())
	if err != nil {
		component.WriteError(w, err)
		return
	}
	v := balanceView{Balance: b, CreditsDisplay: FormatCredits(b.Credits)}
	if b.RenewsAt != nil {
		v.RenewsOn = FormatDate(*b.RenewsAt, time.UTC)
	}
	component.WriteJSON(w, http.StatusOK, v)
}

func (c *Component) getTransactions(w http.ResponseWriter, r *http.Request) {
	p, err := c.history.List(r.Context(), slice.ParseQuery(r.URL.Query(), "kind"))
	if err != nil {
		component.WriteError(w, err)
		return
	}
	out := slice.Page[transactionView]{
		Items:    make([]transactionView, 0, len(p.Items)),
		Page:     p.Page,
		PageSize: p.PageSize,
		Total:    p.Total,
	}
	for _, t := range p.Items {
		out.Items = append(out.Items, transactionView{
			Transaction:   t,
			AmountDisplay: FormatCredits(t.Amount),
			Date:          FormatDate(t.CreatedAt, time.UTC),
		})
	}
	component.WriteJSON(w, http.StatusOK, out)
}

func (c *Component) postSubscription(w http.ResponseWriter, r *http.Request) {
	var in Subscription
	if err := component.DecodeJSON(r, &in); err != nil {
		component.BadRequest(w, "malformed body")
		return
	}
	if err := form.Validate(in); err != nil {
		component.WriteError(w, err)
		return
	}
	var out json.RawMessage
	if err := c.d.Upstream.Post(r.Context(), subscriptionPath, in, &out); err != nil {
		component.WriteError(w, err)
		return
	}
	sid := scope.FromContext(r.Context()).SessionID()
	c.balance.Invalidate(sid)
	c.history.Invalidate(sid)
	zap.L().Info("subscription changed", zap.String("plan", in.Plan), zap.Int("seats", in.Seats))

	if len(out) == 0 {
		out = json.RawMessage("{}")
	}
	component.WriteJSON(w, http.StatusOK, out)
}
