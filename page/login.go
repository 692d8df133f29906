package page

import (
	"context"

	"github.com/liuxd6825/webaccept/browser"
	"github.com/liuxd6825/webaccept/log"
)

// Elements of the login form.
var (
	UsernameField = NewLocator("username field", browser.ID("username"))
	PasswordField = NewLocator("password field", browser.ID("password"))
	LoginButton   = NewLocator("login button", browser.ID("Login"))
	RememberMe    = NewLocator("remember me checkbox", browser.ID("rememberUn"))
	ErrorBanner   = NewLocator("error message", browser.ID("error"))
)

// LoginPage exposes the login form actions. It is bound to a single session
// and keeps no other state.
type LoginPage struct {
	actor *Actor
}

// NewLoginPage binds a LoginPage to s.
func NewLoginPage(s browser.Session, w *Waiter, logger *log.Logger) *LoginPage {
	return &LoginPage{actor: NewActor(s, w, logger)}
}

// Session returns the session the page is bound to.
func (p *LoginPage) Session() browser.Session {
	return p.actor.Session()
}

// EnterUsername replaces the content of the username field.
func (p *LoginPage) EnterUsername(ctx context.Context, username string) error {
	_, err := p.actor.Perform(ctx, Action{
		Name:        "enter username",
		Locator:     UsernameField,
		Condition:   Visible,
		Interaction: SetText,
		Payload:     username,
	})
	return err
}

// EnterPassword replaces the content of the password field.
func (p *LoginPage) EnterPassword(ctx context.Context, password string) error {
	_, err := p.actor.Perform(ctx, Action{
		Name:        "enter password",
		Locator:     PasswordField,
		Condition:   Visible,
		Interaction: SetText,
		Payload:     password,
	})
	return err
}

// ClickLogin submits the form.
func (p *LoginPage) ClickLogin(ctx context.Context) error {
	_, err := p.actor.Perform(ctx, Action{
		Name:        "click login button",
		Locator:     LoginButton,
		Condition:   Clickable,
		Interaction: Click,
	})
	return err
}

// ClickRememberMe selects the remember me checkbox. Calling it on a selected
// checkbox leaves it selected.
func (p *LoginPage) ClickRememberMe(ctx context.Context) error {
	_, err := p.actor.Perform(ctx, Action{
		Name:        "click remember me",
		Locator:     RememberMe,
		Condition:   Clickable,
		Interaction: Check,
	})
	return err
}

// IsRememberMeSelected reports the selection state of the remember me checkbox.
func (p *LoginPage) IsRememberMeSelected(ctx context.Context) (bool, error) {
	out, err := p.actor.Perform(ctx, Action{
		Name:        "read remember me",
		Locator:     RememberMe,
		Condition:   Present,
		Interaction: ReadSelected,
	})
	return out.Flag, err
}

// ErrorMessage returns the text of the error banner once it is visible.
func (p *LoginPage) ErrorMessage(ctx context.Context) (string, error) {
	out, err := p.actor.Perform(ctx, Action{
		Name:        "get error message",
		Locator:     ErrorBanner,
		Condition:   Visible,
		Interaction: ReadText,
	})
	return out.Text, err
}

// IsUsernameDisplayed never fails, faults are reported as false.
func (p *LoginPage) IsUsernameDisplayed(ctx context.Context) bool {
	return p.displayed(ctx, "check username field", UsernameField)
}

// IsPasswordDisplayed never fails, faults are reported as false.
func (p *LoginPage) IsPasswordDisplayed(ctx context.Context) bool {
	return p.displayed(ctx, "check password field", PasswordField)
}

// IsLoginButtonDisplayed never fails, faults are reported as false.
func (p *LoginPage) IsLoginButtonDisplayed(ctx context.Context) bool {
	return p.displayed(ctx, "check login button", LoginButton)
}

func (p *LoginPage) displayed(ctx context.Context, name string, loc Locator) bool {
	out, _ := p.actor.Perform(ctx, Action{
		Name:        name,
		Locator:     loc,
		Condition:   Visible,
		Interaction: ReadVisible,
	})
	return out.Flag
}
