package steps

import "github.com/liuxd6825/webaccept/scenario"

// FeatureName is the feature the built-in scripts belong to.
const FeatureName = "Salesforce Login"

// Settings parameterize the built-in scripts.
type Settings struct {
	LoginURL      string
	Username      string
	Password      string
	ExpectedError string
}

// WithDefaults fills empty fields with the Default* values.
func (s Settings) WithDefaults() Settings {
	if s.LoginURL == "" {
		s.LoginURL = DefaultLoginURL
	}
	if s.Username == "" {
		s.Username = DefaultUsername
	}
	if s.Password == "" {
		s.Password = DefaultPassword
	}
	if s.ExpectedError == "" {
		s.ExpectedError = DefaultExpectedError
	}
	return s
}

// Scripts returns the login scenarios of features/login.feature.
func Scripts(s Settings) []scenario.Script {
	s = s.WithDefaults()
	uri := "features/login.feature"
	return []scenario.Script{
		{
			Name:    "Login page elements are visible",
			Feature: FeatureName,
			URI:     uri,
			Tags:    []string{"@smoke"},
			Steps: []scenario.Step{
				NavigateToLogin(s.LoginURL),
				AssertLoginElementsVisible(),
				TakeScreenshot(),
			},
		},
		{
			Name:    "Login with invalid credentials",
			Feature: FeatureName,
			URI:     uri,
			Tags:    []string{"@negative"},
			Steps: []scenario.Step{
				NavigateToLogin(s.LoginURL),
				EnterCredentials(s.Username, s.Password),
				ClickLogin(),
				AssertErrorMessage(s.ExpectedError),
			},
		},
		{
			Name:    "Remember me with invalid credentials",
			Feature: FeatureName,
			URI:     uri,
			Tags:    []string{"@negative"},
			Steps: []scenario.Step{
				NavigateToLogin(s.LoginURL),
				TickRememberMe(),
				EnterCredentials(s.Username, s.Password),
				ClickLogin(),
				AssertErrorMessage(s.ExpectedError),
			},
		},
	}
}

// Filter keeps the scripts carrying at least one of tags. No tags keeps all.
func Filter(scripts []scenario.Script, tags []string) []scenario.Script {
	if len(tags) == 0 {
		return scripts
	}
	want := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		want[t] = struct{}{}
	}
	var kept []scenario.Script
	for _, sc := range scripts {
		for _, t := range sc.Tags {
			if _, ok := want[t]; ok {
				kept = append(kept, sc)
				break
			}
		}
	}
	return kept
}
