package lodging

import (
	"context"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"
)

// PortalController wires the session, gate, and application workflow
// into HTTP routes.
type PortalController struct {
	Debug    bool
	Logger   Logger
	Repo     RepositoryManager
	Verifier AssertionVerifier
	Tokens   TokenService
	Machine  ApplicationStateMachine
	Gate     *Gate
	Activity ActivitySink

	CookieName      string
	SecureCookies   bool
	LoginRoute      string
	ForbiddenRoute  string
	ProtectedPrefix string
}

type PortalControllerOption func(*PortalController) *PortalController

func NewPortalController(opts ...PortalControllerOption) *PortalController {
	c := &PortalController{
		Logger:          defLogger{},
		Activity:        noopActivitySink{},
		CookieName:      DefaultCookieName,
		LoginRoute:      "/login",
		ForbiddenRoute:  "/",
		ProtectedPrefix: "/admin",
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in portal controller...")
	}

	if c.Verifier == nil {
		panic("Missing AssertionVerifier in portal controller...")
	}

	if c.Tokens == nil {
		panic("Missing TokenService in portal controller...")
	}

	if c.Machine == nil {
		c.Machine = NewApplicationStateMachine(c.Repo,
			WithStateMachineActivitySink(c.Activity),
			WithStateMachineLogger(c.Logger),
		)
	}

	if c.Gate == nil {
		c.Gate = NewGate(c.accountLookup(),
			WithGatePrefix(c.ProtectedPrefix),
			WithGateLogger(c.Logger),
		)
	}

	return c
}

// RegisterRoutes mounts every route on the fiber app.
func (p *PortalController) RegisterRoutes(app *fiber.App) {
	app.Post("/api/auth/session", p.SessionCreate)
	app.Post("/api/auth/logout", p.SessionDestroy)
	app.Post("/api/auth/register", p.RegistrationCreate)

	requireSession := RequireSession(p.CookieName, p.Tokens, p.accountLookup(), p.Logger)
	app.Get("/api/me", requireSession, p.MeShow)
	app.Post("/api/me/application", requireSession, p.ApplicationSubmit)
	app.Post("/api/me/application/messages", requireSession, p.MessageCreate)

	gate := GateMiddleware(p.Gate, p.CookieName, p.Tokens, p.LoginRoute, p.ForbiddenRoute)
	admin := app.Group(p.ProtectedPrefix, gate)
	admin.Get("/api/accounts", p.AccountsIndex)
	admin.Get("/api/applications", p.ApplicationsIndex)
	admin.Post("/api/applications/:account_id/decision", p.DecisionCreate)
	admin.Post("/api/applications/:account_id/messages", p.AdminMessageCreate)
	admin.Delete("/api/accounts/:account_id", p.AccountRemove)
}

// SessionCreatePayload carries the provider-issued identity assertion.
type SessionCreatePayload struct {
	IDToken string `form:"idToken" json:"idToken"`
}

// SessionCreate exchanges a verified identity assertion for a session
// cookie.
func (p *PortalController) SessionCreate(c *fiber.Ctx) error {
	payload := new(SessionCreatePayload)

	if err := c.BodyParser(payload); err != nil || payload.IDToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "ID token is required",
		})
	}

	identity, err := p.Verifier.Verify(c.UserContext(), payload.IDToken)
	if err != nil {
		switch {
		case HasTextCode(err, textCodeExpiredAssertion):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "ID token has expired",
			})
		case HasTextCode(err, textCodeInvalidAssertion):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid ID token",
			})
		default:
			p.Logger.Error("session create: verify failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}
	}

	token, expiresAt, err := p.Tokens.Issue(identity)
	if err != nil {
		p.Logger.Error("session create: issue failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	if p.Debug {
		fmt.Println("================")
		fmt.Println(print.MaybePrettyJSON(identity))
		fmt.Println("================")
	}

	WriteSessionCookie(c, p.CookieName, token, expiresAt, p.sessionTTL(), p.SecureCookies)

	p.recordActivity(c, ActivityEvent{
		EventType: ActivityEventSessionEstablished,
		Actor:     ActorRef{ID: identity.ID()},
		AccountID: identity.ID(),
	})

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "success",
		"uid":    identity.ID(),
	})
}

// SessionDestroy clears the session cookie. Always succeeds; there is
// nothing server-side to revoke.
func (p *PortalController) SessionDestroy(c *fiber.Ctx) error {
	if session, err := SessionFromCookie(c, p.CookieName, p.Tokens); err == nil {
		p.recordActivity(c, ActivityEvent{
			EventType: ActivityEventSessionCleared,
			Actor:     ActorRef{ID: session.GetUserID()},
			AccountID: session.GetUserID(),
		})
	}

	ClearSessionCookie(c, p.CookieName, p.SecureCookies)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "success",
	})
}

// RegistrationCreatePayload carries a verified assertion plus profile
// and optional accommodation request details.
type RegistrationCreatePayload struct {
	IDToken           string `form:"idToken" json:"idToken"`
	Name              string `form:"name" json:"name"`
	AccommodationType string `form:"accommodationType" json:"accommodationType"`
	Location          string `form:"location" json:"location"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IDToken, validation.Required),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.AccommodationType, validation.Length(0, 200)),
		validation.Field(&r.Location, validation.Length(0, 200)),
	)
}

// RegistrationCreate creates the account for a verified identity, and
// the pending application when request details were supplied.
func (p *PortalController) RegistrationCreate(c *fiber.Ctx) error {
	payload := new(RegistrationCreatePayload)

	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to parse body",
		})
	}

	if err := payload.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	identity, err := p.Verifier.Verify(c.UserContext(), payload.IDToken)
	if err != nil {
		switch {
		case HasTextCode(err, textCodeExpiredAssertion):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "ID token has expired",
			})
		case HasTextCode(err, textCodeInvalidAssertion):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid ID token",
			})
		default:
			p.Logger.Error("registration: verify failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}
	}

	account := &Account{
		SubjectID:     identity.ID(),
		Email:         identity.Email(),
		Name:          payload.Name,
		Role:          RoleUser,
		EmailVerified: identity.EmailVerified(),
	}

	created, err := p.Repo.Accounts().Register(c.UserContext(), account)
	if err != nil {
		return respondError(c, p.Logger, err)
	}

	p.recordActivity(c, ActivityEvent{
		EventType: ActivityEventAccountRegistered,
		Actor:     ActorRef{ID: created.SubjectID, Role: created.Role},
		AccountID: created.ID.String(),
	})

	var app *Application
	if payload.AccommodationType != "" || payload.Location != "" {
		actor := ActorRef{ID: created.SubjectID, Role: created.Role}
		app, err = p.Machine.Submit(c.UserContext(), actor, created.ID, ApplicationDetails{
			AccommodationType: payload.AccommodationType,
			Location:          payload.Location,
		})
		if err != nil {
			return respondError(c, p.Logger, err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status":      "success",
		"account":     created,
		"application": app,
	})
}

// MeShow returns the caller's account and application.
func (p *PortalController) MeShow(c *fiber.Ctx) error {
	account, ok := AccountFromLocals(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	app, err := p.Repo.Applications().GetByAccount(c.UserContext(), account.ID)
	if err != nil && !IsNotFoundError(err) {
		return respondError(c, p.Logger, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"account":     account,
		"application": app,
	})
}

// ApplicationSubmitPayload carries the accommodation request details.
type ApplicationSubmitPayload struct {
	AccommodationType string `form:"accommodationType" json:"accommodationType"`
	Location          string `form:"location" json:"location"`
}

// Validate will validate the payload
func (r ApplicationSubmitPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.AccommodationType, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Location, validation.Required, validation.Length(1, 200)),
	)
}

// ApplicationSubmit files the caller's application.
func (p *PortalController) ApplicationSubmit(c *fiber.Ctx) error {
	account, ok := AccountFromLocals(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	payload := new(ApplicationSubmitPayload)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to parse body",
		})
	}

	if err := payload.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	actor := ActorRef{ID: account.SubjectID, Role: account.Role}
	app, err := p.Machine.Submit(c.UserContext(), actor, account.ID, ApplicationDetails{
		AccommodationType: payload.AccommodationType,
		Location:          payload.Location,
	})
	if err != nil {
		return respondError(c, p.Logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status":      "success",
		"application": app,
	})
}

// MessagePayload carries one communication log entry.
type MessagePayload struct {
	Message string `form:"message" json:"message"`
}

// Validate will validate the payload
func (r MessagePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Message, validation.Required, validation.Length(1, 2000)),
	)
}

// MessageCreate appends a message from the caller to their own
// application's communication log.
func (p *PortalController) MessageCreate(c *fiber.Ctx) error {
	account, ok := AccountFromLocals(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	payload := new(MessagePayload)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to parse body",
		})
	}

	if err := payload.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	actor := ActorRef{ID: account.SubjectID, Role: account.Role}
	entry, err := p.Machine.AppendMessage(c.UserContext(), actor, account.ID, payload.Message)
	if err != nil {
		return respondError(c, p.Logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status": "success",
		"entry":  entry,
	})
}

// AccountsIndex lists every account. Admin only; the gate middleware
// already enforced the role.
func (p *PortalController) AccountsIndex(c *fiber.Ctx) error {
	records, err := p.Repo.Accounts().ListAll(c.UserContext())
	if err != nil {
		return respondError(c, p.Logger, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"accounts": records,
	})
}

// ApplicationsIndex lists applications, optionally filtered by status.
func (p *PortalController) ApplicationsIndex(c *fiber.Ctx) error {
	status := ApplicationStatus(c.Query("status"))
	if status != "" && !IsValidStatus(status) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid status filter",
		})
	}

	records, err := p.Repo.Applications().ListByStatus(c.UserContext(), status)
	if err != nil {
		return respondError(c, p.Logger, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"applications": records,
	})
}

// DecisionPayload carries an admin decision and the message that
// explains it.
type DecisionPayload struct {
	Status  string `form:"status" json:"status"`
	Message string `form:"message" json:"message"`
}

// Validate will validate the payload
func (r DecisionPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Status,
			validation.Required,
			validation.In(string(StatusAccepted), string(StatusDenied)),
		),
		validation.Field(&r.Message, validation.Required, validation.Length(1, 2000)),
	)
}

// DecisionCreate resolves a pending application. The status change and
// the decision message land in one transaction.
func (p *PortalController) DecisionCreate(c *fiber.Ctx) error {
	accountID, err := uuid.Parse(c.Params("account_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid account id",
		})
	}

	payload := new(DecisionPayload)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to parse body",
		})
	}

	if err := payload.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	actor := p.adminActor(c)
	app, err := p.Machine.Transition(
		c.UserContext(),
		actor,
		accountID,
		ApplicationStatus(payload.Status),
		payload.Message,
	)
	if err != nil {
		return respondError(c, p.Logger, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":      "success",
		"application": app,
	})
}

// AdminMessageCreate appends an admin message to any application's log.
func (p *PortalController) AdminMessageCreate(c *fiber.Ctx) error {
	accountID, err := uuid.Parse(c.Params("account_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid account id",
		})
	}

	payload := new(MessagePayload)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to parse body",
		})
	}

	if err := payload.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	actor := p.adminActor(c)
	entry, err := p.Machine.AppendMessage(c.UserContext(), actor, accountID, payload.Message)
	if err != nil {
		return respondError(c, p.Logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status": "success",
		"entry":  entry,
	})
}

// AccountRemove deletes an account and its application.
func (p *PortalController) AccountRemove(c *fiber.Ctx) error {
	accountID, err := uuid.Parse(c.Params("account_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid account id",
		})
	}

	actor := p.adminActor(c)
	if err := p.Machine.Remove(c.UserContext(), actor, accountID); err != nil {
		return respondError(c, p.Logger, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "success",
	})
}

func (p *PortalController) accountLookup() AccountLookup {
	return AccountLookupFunc(func(ctx context.Context, subject string) (*Account, error) {
		return p.Repo.Accounts().GetBySubject(ctx, subject)
	})
}

func (p *PortalController) adminActor(c *fiber.Ctx) ActorRef {
	actor := ActorRef{Role: RoleAdmin}
	if session, ok := SessionFromLocals(c); ok {
		actor.ID = session.GetUserID()
	}
	return actor
}

func (p *PortalController) sessionTTL() int {
	if ts, ok := p.Tokens.(*TokenServiceImpl); ok {
		return int(ts.SessionTTL() / time.Second)
	}
	return DefaultSessionTTL
}

func (p *PortalController) recordActivity(c *fiber.Ctx, event ActivityEvent) {
	sink := normalizeActivitySink(p.Activity)
	if err := sink.Record(c.UserContext(), event); err != nil {
		p.Logger.Warn("portal activity sink error: %v", err)
	}
}
