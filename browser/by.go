package browser

import (
	"fmt"
	"strings"
)

// Strategy is the way an element is looked up.
type Strategy string

// Supported lookup strategies.
const (
	StrategyID   Strategy = "id"
	StrategyName Strategy = "name"
	StrategyCSS  Strategy = "css"
)

// By is a lookup strategy together with its value, e.g. id=username.
type By struct {
	Strategy Strategy
	Value    string
}

// ID matches the element with the given id attribute.
func ID(id string) By { return By{Strategy: StrategyID, Value: id} }

// Name matches the first element with the given name attribute.
func Name(name string) By { return By{Strategy: StrategyName, Value: name} }

// CSS matches the first element for the given CSS selector.
func CSS(selector string) By { return By{Strategy: StrategyCSS, Value: selector} }

// Selector returns the CSS selector equivalent of b.
func (b By) Selector() string {
	switch b.Strategy {
	case StrategyID:
		return fmt.Sprintf(`[id="%s"]`, escapeAttr(b.Value))
	case StrategyName:
		return fmt.Sprintf(`[name="%s"]`, escapeAttr(b.Value))
	default:
		return b.Value
	}
}

func (b By) String() string {
	return string(b.Strategy) + "=" + b.Value
}

func escapeAttr(v string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v)
}
