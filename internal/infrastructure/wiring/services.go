package wiring

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/kanbanize/internal/application"
	"github.com/felixgeelhaar/kanbanize/internal/infrastructure/api"
	"github.com/felixgeelhaar/kanbanize/internal/infrastructure/config"
	"github.com/felixgeelhaar/kanbanize/internal/infrastructure/identity"
	"github.com/felixgeelhaar/kanbanize/internal/infrastructure/storage"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/events"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/session"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/team"
)

// AppServices exposes the application layer services wired together
// over one workspace, one API client, and one notification bus.
type AppServices struct {
	Workspace *Workspace
	Config    *config.Config
	Provider  *identity.Provider
	Stream    *identity.Stream
	Tokens    *SessionTokens
	API       *api.Client
	Bus       *events.Bus
	Session   *application.SessionService
	Tasks     *application.TaskStore
	Teams     *application.TeamService
	Workday   *application.WorkdayService
}

// verificationChecker re-reads the verified flag through a forced token
// refresh so a verification done elsewhere is seen immediately.
type verificationChecker struct {
	tokens   *SessionTokens
	provider *identity.Provider
}

func (c *verificationChecker) CheckVerified(ctx context.Context) (bool, error) {
	active := c.tokens.Active()
	if active == nil {
		return false, fmt.Errorf("not signed in")
	}
	tok, err := active.ForceRefresh(ctx)
	if err != nil {
		return false, err
	}
	return c.provider.Lookup(ctx, tok.AccessToken)
}

// BuildAppServices constructs the full service graph for a home
// directory. A broken config file degrades to the defaults; the error
// comes back alongside the working services so the caller can report
// it without dying.
func BuildAppServices(root string) (*AppServices, error) {
	workspace := NewWorkspace(root)

	cfg, loadErr := config.Load(root)
	if loadErr != nil {
		loadErr = fmt.Errorf("config fallback to defaults: %w", loadErr)
		cfg = config.Default()
	}

	var identityOpts []identity.Option
	if cfg.Identity.AuthURL != "" || cfg.Identity.TokenURL != "" {
		identityOpts = append(identityOpts, identity.WithEndpoints(cfg.Identity.AuthURL, cfg.Identity.TokenURL))
	}
	provider := identity.NewProvider(cfg.Identity.APIKey, identityOpts...)

	tokens := &SessionTokens{}
	client := api.NewClient(cfg.APIBaseURL, tokens)
	bus := events.NewBus()
	stream := identity.NewStream()

	sessionSvc, err := application.NewSessionService(client, &verificationChecker{tokens: tokens, provider: provider}, bus)
	if err != nil {
		return nil, err
	}

	services := &AppServices{
		Workspace: workspace,
		Config:    cfg,
		Provider:  provider,
		Stream:    stream,
		Tokens:    tokens,
		API:       client,
		Bus:       bus,
		Session:   sessionSvc,
		Teams:     application.NewTeamService(client, bus),
	}

	// The store's workday gate reads the timer through the services
	// struct: the timer does not exist yet when the store is built.
	services.Tasks = application.NewTaskStore(client, bus,
		application.WithWorkdayGate(func() bool {
			return services.Workday != nil && services.Workday.Started()
		}))

	// The summary toast covers the user's own tasks, not the whole board.
	workdaySvc, err := application.NewWorkdayService(client, bus,
		application.WithTaskSource(services.Tasks.AssignedCards))
	if err != nil {
		return nil, err
	}
	services.Workday = workdaySvc

	// Identity flows downstream: every session resolution updates the
	// board's identity and the team service's capability set.
	services.Session.Subscribe(func(snap session.Snapshot) {
		services.Teams.SetCapabilities(snap.Profile.Capabilities())
		services.Tasks.SetIdentity(snap)
	})

	// Team selection drives which board is shown.
	services.Teams.Subscribe(func(_ []team.Team, selected int) {
		if selected != services.Tasks.SelectedTeam() {
			services.Tasks.SelectTeam(selected)
		}
	})

	// The current-user stream feeds the gate.
	services.Stream.Subscribe(func(upd identity.Update) {
		if upd.Loading {
			return
		}
		services.Session.Resolve(context.Background(), upd.Principal)
	})

	return services, loadErr
}

// ResumeSession restores the persisted session, if any. Without one the
// stream resolves to signed-out.
func (s *AppServices) ResumeSession(ctx context.Context) error {
	cached, err := s.Workspace.Repo.LoadSession()
	if err != nil {
		s.Stream.Set(nil)
		return err
	}
	if cached == nil {
		s.Stream.Set(nil)
		return nil
	}

	acct := &identity.Account{
		UID:          cached.UID,
		Email:        cached.Email,
		IDToken:      cached.IDToken,
		RefreshToken: cached.RefreshToken,
		ExpiresAt:    cached.ExpiresAt,
	}
	s.Tokens.Set(identity.NewTokenSource(s.Provider, acct))

	// The cache does not carry the verified flag; the resolver's
	// verification check settles it.
	s.Stream.Set(identity.PrincipalOf(acct))
	return nil
}

// SignIn authenticates, persists the session, and pushes the principal
// through the stream.
func (s *AppServices) SignIn(ctx context.Context, email, password string) error {
	acct, err := s.Provider.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	return s.adoptAccount(acct)
}

// SignUp registers a new account and signs it in. The caller is
// expected to trigger the verification email afterwards.
func (s *AppServices) SignUp(ctx context.Context, email, password string) (*identity.Account, error) {
	acct, err := s.Provider.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.adoptAccount(acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// ChangePassword reauthenticates with the current password and replaces
// it, adopting the rotated credentials so the session stays signed in.
func (s *AppServices) ChangePassword(ctx context.Context, email, currentPassword, newPassword string) error {
	reauthed, err := s.Provider.SignIn(ctx, email, currentPassword)
	if err != nil {
		return fmt.Errorf("reauthentication failed: %w", err)
	}
	updated, err := s.Provider.UpdatePassword(ctx, reauthed.IDToken, newPassword)
	if err != nil {
		return err
	}
	// The update response omits fields it did not change; keep the
	// reauthenticated values for those.
	if updated.Email == "" {
		updated.Email = reauthed.Email
	}
	if updated.UID == "" {
		updated.UID = reauthed.UID
	}
	updated.EmailVerified = reauthed.EmailVerified
	return s.adoptAccount(updated)
}

// SignOut clears the persisted session and resolves the gate to
// signed-out.
func (s *AppServices) SignOut() error {
	err := s.Workspace.Repo.ClearSession()
	s.Tokens.Set(nil)
	s.Stream.Set(nil)
	return err
}

// PersistSession writes the current tokens so the session survives
// restarts. Call after resolutions that refreshed the token.
func (s *AppServices) PersistSession(uid, email string) error {
	active := s.Tokens.Active()
	if active == nil {
		return fmt.Errorf("no session to persist")
	}
	tok, err := active.Token()
	if err != nil {
		return err
	}
	return s.Workspace.Repo.SaveSession(&storage.CachedSession{
		UID:          uid,
		Email:        email,
		IDToken:      tok.AccessToken,
		RefreshToken: active.RefreshToken(),
		ExpiresAt:    tok.Expiry,
	})
}

func (s *AppServices) adoptAccount(acct *identity.Account) error {
	s.Tokens.Set(identity.NewTokenSource(s.Provider, acct))

	err := s.Workspace.Repo.SaveSession(&storage.CachedSession{
		UID:          acct.UID,
		Email:        acct.Email,
		IDToken:      acct.IDToken,
		RefreshToken: acct.RefreshToken,
		ExpiresAt:    acct.ExpiresAt,
	})

	s.Stream.Set(identity.PrincipalOf(acct))
	return err
}
