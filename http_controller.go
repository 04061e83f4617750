package emailchange

import (
	"errors"
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/uptrace/bun"

	"github.com/kazu0702/vs-fund-api/billing"
)

type EmailChangeRoutes struct {
	Request    string
	Confirm    string
	ChangePlan string
	Health     string
	PingDB     string
}

// EmailChangeController exposes the workflow over HTTP. JSON is the default
// rendering; the confirm endpoint also supports a redirect mode for the
// link-click path (?r=1), carrying the failure reason as a query parameter.
type EmailChangeController struct {
	Debug      bool
	Logger     Logger
	Requests   *RequestEmailChangeHandler
	Confirms   *ConfirmEmailChangeHandler
	Billing    billing.PlanSwapper
	DB         *bun.DB
	Routes     *EmailChangeRoutes
	SuccessURL string
	FailureURL string
}

type EmailChangeControllerOption func(*EmailChangeController) *EmailChangeController

func WithControllerLogger(logger Logger) EmailChangeControllerOption {
	return func(c *EmailChangeController) *EmailChangeController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithDebug(debug bool) EmailChangeControllerOption {
	return func(c *EmailChangeController) *EmailChangeController {
		c.Debug = debug
		return c
	}
}

func WithHandlers(requests *RequestEmailChangeHandler, confirms *ConfirmEmailChangeHandler) EmailChangeControllerOption {
	return func(c *EmailChangeController) *EmailChangeController {
		c.Requests = requests
		c.Confirms = confirms
		return c
	}
}

func WithBilling(swapper billing.PlanSwapper) EmailChangeControllerOption {
	return func(c *EmailChangeController) *EmailChangeController {
		c.Billing = swapper
		return c
	}
}

func WithDB(db *bun.DB) EmailChangeControllerOption {
	return func(c *EmailChangeController) *EmailChangeController {
		c.DB = db
		return c
	}
}

func WithRedirects(successURL, failureURL string) EmailChangeControllerOption {
	return func(c *EmailChangeController) *EmailChangeController {
		c.SuccessURL = successURL
		c.FailureURL = failureURL
		return c
	}
}

func NewEmailChangeController(opts ...EmailChangeControllerOption) *EmailChangeController {
	c := &EmailChangeController{
		Logger: defLogger{},
		Routes: &EmailChangeRoutes{
			Request:    "/api/emailChange/request",
			Confirm:    "/api/emailChange/confirm",
			ChangePlan: "/api/change-plan",
			Health:     "/healthz",
			PingDB:     "/api/ping-db",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Requests == nil || c.Confirms == nil {
		panic("Missing email change handlers in controller...")
	}

	return c
}

// RegisterRoutes mounts the controller on the app.
func (c *EmailChangeController) RegisterRoutes(app *fiber.App) {
	app.Post(c.Routes.Request, c.RequestPost).Name("email-change.request")
	app.Get(c.Routes.Confirm, c.ConfirmGet).Name("email-change.confirm")
	app.Get(c.Routes.Health, c.Health).Name("healthz")

	if c.DB != nil {
		app.Get(c.Routes.PingDB, c.PingDB).Name("ping-db")
	}
	if c.Billing != nil {
		app.Post(c.Routes.ChangePlan, c.ChangePlanPost).Name("change-plan")
	}

	app.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.SendString("VS-FUND API running")
	})
}

// EmailChangeRequestPayload is the POST /emailChange/request body.
type EmailChangeRequestPayload struct {
	MemberID string `json:"memberId" form:"memberId"`
	NewEmail string `json:"newEmail" form:"newEmail"`
}

// Validate will run validation rules
func (p EmailChangeRequestPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(
			&p.MemberID,
			validation.Required,
		),
		validation.Field(
			&p.NewEmail,
			validation.Required,
			is.Email,
		),
	)
}

func (c *EmailChangeController) RequestPost(ctx *fiber.Ctx) error {
	payload := new(EmailChangeRequestPayload)

	if err := ctx.BodyParser(payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false})
	}

	if err := payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false})
	}

	msg := RequestEmailChangeMessage{
		MemberID: payload.MemberID,
		NewEmail: payload.NewEmail,
	}

	if err := c.Requests.Execute(ctx.UserContext(), msg); err != nil {
		c.Logger.Error("email change request failed: %v", err)
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"ok":     false,
			"reason": ReasonServerError,
		})
	}

	metricRequestsTotal.Inc()

	// Always ok on accepted input so callers cannot probe which member ids
	// exist.
	return ctx.JSON(fiber.Map{"ok": true})
}

func (c *EmailChangeController) ConfirmGet(ctx *fiber.Ctx) error {
	outcome := c.Confirms.Execute(ctx.UserContext(), ConfirmEmailChangeMessage{
		Token: ctx.Query("token"),
	})

	observeConfirmation(outcome)

	if ctx.Query("r") == "1" {
		return c.confirmRedirect(ctx, outcome)
	}

	if !c.Debug {
		outcome.Diagnostics = nil
	}
	return ctx.JSON(outcome)
}

func (c *EmailChangeController) confirmRedirect(ctx *fiber.Ctx, outcome ConfirmOutcome) error {
	if outcome.OK {
		return ctx.Redirect(c.SuccessURL, fiber.StatusFound)
	}

	target := c.FailureURL
	if u, err := url.Parse(target); err == nil {
		q := u.Query()
		q.Set("reason", outcome.Reason)
		u.RawQuery = q.Encode()
		target = u.String()
	}
	return ctx.Redirect(target, fiber.StatusFound)
}

// ChangePlanPayload is the POST /change-plan body.
type ChangePlanPayload struct {
	CustomerID string `json:"customerId" form:"customerId"`
	NewPriceID string `json:"newPriceId" form:"newPriceId"`
}

// Validate will run validation rules
func (p ChangePlanPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.CustomerID, validation.Required),
		validation.Field(&p.NewPriceID, validation.Required),
	)
}

func (c *EmailChangeController) ChangePlanPost(ctx *fiber.Ctx) error {
	payload := new(ChangePlanPayload)

	if err := ctx.BodyParser(payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}

	if err := payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	sub, err := c.Billing.SwapPlan(ctx.UserContext(), billing.PlanSwap{
		CustomerID: payload.CustomerID,
		NewPriceID: payload.NewPriceID,
	})
	if err != nil {
		if errors.Is(err, billing.ErrNoActiveSubscription) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No active subscription"})
		}
		c.Logger.Error("plan change failed for customer %s: %v", payload.CustomerID, err)
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "plan change failed"})
	}

	return ctx.JSON(fiber.Map{
		"success":      true,
		"subscription": sub,
	})
}

func (c *EmailChangeController) Health(ctx *fiber.Ctx) error {
	return ctx.SendString("ok")
}

func (c *EmailChangeController) PingDB(ctx *fiber.Ctx) error {
	var now string
	err := c.DB.NewSelect().
		ColumnExpr("CURRENT_TIMESTAMP AS now").
		Scan(ctx.UserContext(), &now)
	if err != nil {
		c.Logger.Error("db ping failed: %v", err)
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database unavailable"})
	}
	return ctx.JSON(fiber.Map{"now": now})
}
