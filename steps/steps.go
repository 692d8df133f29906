// Package steps holds the login step vocabulary shared by the built-in
// scenario scripts and the Gherkin bindings.
package steps

import (
	"context"
	"fmt"

	"github.com/liuxd6825/webaccept/page"
	"github.com/liuxd6825/webaccept/scenario"
)

const (
	// DefaultLoginURL is the login page visited by NavigateToLogin.
	DefaultLoginURL = "https://login.salesforce.com/?locale=in"
	// DefaultExpectedError is the banner shown for unknown credentials.
	DefaultExpectedError = "Please check your username and password. If you still can't log in, contact your Salesforce administrator."
	// DefaultUsername and DefaultPassword are credentials no account uses.
	DefaultUsername = "invalid@user.com"
	DefaultPassword = "wrongpass"
)

// Step expressions as they appear in feature files.
const (
	NavigateExpr        = `^I navigate to the Salesforce login page$`
	CredentialsExpr     = `^I enter invalid username "([^"]*)" and password "([^"]*)"$`
	ClickLoginExpr      = `^I click the login button$`
	RememberMeExpr      = `^I tick remember me$`
	ElementsVisibleExpr = `^the login page elements should be visible$`
	ErrorMessageExpr    = `^I should see an error message "([^"]*)"$`
	ScreenshotExpr      = `^I take a screenshot$`
)

func loginPage(c *scenario.Controller) (*page.LoginPage, error) {
	p := c.Page()
	if p == nil {
		return nil, scenario.ErrNoSession
	}
	return p, nil
}

// NavigateToLogin opens url.
func NavigateToLogin(url string) scenario.Step {
	return scenario.Step{
		Name: "I navigate to the Salesforce login page",
		Run: func(ctx context.Context, c *scenario.Controller) error {
			return c.Navigate(ctx, url)
		},
	}
}

// EnterCredentials fills in the username and password fields.
func EnterCredentials(username, password string) scenario.Step {
	return scenario.Step{
		Name: fmt.Sprintf("I enter invalid username %q and password %q", username, password),
		Run: func(ctx context.Context, c *scenario.Controller) error {
			p, err := loginPage(c)
			if err != nil {
				return err
			}
			if err := p.EnterUsername(ctx, username); err != nil {
				return err
			}
			return p.EnterPassword(ctx, password)
		},
	}
}

// ClickLogin submits the login form.
func ClickLogin() scenario.Step {
	return scenario.Step{
		Name: "I click the login button",
		Run: func(ctx context.Context, c *scenario.Controller) error {
			p, err := loginPage(c)
			if err != nil {
				return err
			}
			return p.ClickLogin(ctx)
		},
	}
}

// TickRememberMe selects the remember me checkbox.
func TickRememberMe() scenario.Step {
	return scenario.Step{
		Name: "I tick remember me",
		Run: func(ctx context.Context, c *scenario.Controller) error {
			p, err := loginPage(c)
			if err != nil {
				return err
			}
			return p.ClickRememberMe(ctx)
		},
	}
}

// AssertLoginElementsVisible checks the username, password and login button
// are displayed.
func AssertLoginElementsVisible() scenario.Step {
	return scenario.Step{
		Name: "the login page elements should be visible",
		Run: func(ctx context.Context, c *scenario.Controller) error {
			p, err := loginPage(c)
			if err != nil {
				return err
			}
			if err := scenario.AssertTrue(p.IsUsernameDisplayed(ctx), "Username field is not displayed"); err != nil {
				return err
			}
			if err := scenario.AssertTrue(p.IsPasswordDisplayed(ctx), "Password field is not displayed"); err != nil {
				return err
			}
			return scenario.AssertTrue(p.IsLoginButtonDisplayed(ctx), "Login button is not displayed")
		},
	}
}

// AssertErrorMessage compares the error banner with expected.
func AssertErrorMessage(expected string) scenario.Step {
	return scenario.Step{
		Name: fmt.Sprintf("I should see an error message %q", expected),
		Run: func(ctx context.Context, c *scenario.Controller) error {
			p, err := loginPage(c)
			if err != nil {
				return err
			}
			actual, err := p.ErrorMessage(ctx)
			if err != nil {
				return err
			}
			return scenario.AssertEqual(expected, actual, "Error message mismatch")
		},
	}
}

// TakeScreenshot attaches a capture of the current page. It never fails.
func TakeScreenshot() scenario.Step {
	return scenario.Step{
		Name: "I take a screenshot",
		Run: func(ctx context.Context, c *scenario.Controller) error {
			c.Screenshot(ctx, scenario.ExplicitScreenshot)
			return nil
		},
	}
}
