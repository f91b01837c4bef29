package mode

import (
	"strings"

	"github.com/chess10kp/poplaunch/internal/plugin"
	"github.com/chess10kp/poplaunch/internal/protocol"
)

// WebRule lists the literal shortcuts, such as "ddg" or "g", that route a
// query to the web plugin.
type WebRule struct {
	Matches []string
	Icon    string
}

// Resolution is the outcome of resolving one input string.
type Resolution struct {
	Mode ActiveMode
	// Display is the text the input box should show.
	Display string
	// PopQuery is the string to send to the backend.
	PopQuery string
}

// Resolver matches input against web rules and plugins. It holds no mutable
// state and is safe to share.
type Resolver struct {
	plugins []plugin.Plugin
	web     []WebRule
	webIcon *protocol.IconSource
}

func NewResolver(plugins []plugin.Plugin, web []WebRule) *Resolver {
	r := &Resolver{plugins: plugins, web: web}
	for _, p := range plugins {
		if p.Name == WebPlugin {
			r.webIcon = p.Icon
		}
	}
	return r
}

// Resolve classifies raw input typed after previousModifier. Web shortcuts
// win over plugins, help literals over regexes, and earlier plugins over
// later ones.
func (r *Resolver) Resolve(raw, previousModifier string) Resolution {
	if previousModifier != "" && raw == "" {
		return resolution(Default(""), "")
	}

	terms := previousModifier + raw

	if m, ok := r.matchWeb(terms); ok {
		return resolution(m, m.Query)
	}

	for _, p := range r.plugins {
		if idx, ok := p.MatchHelp(terms); ok {
			end := idx + len(p.Help)
			m := pluginMode(p, terms[:end], terms[end:])
			return resolution(m, m.Query)
		}
	}

	// "~" alone would become an empty query under a "~" modifier, and the
	// empty input would then reset the mode, so it is never matched.
	if terms != "~" {
		for _, p := range r.plugins {
			if prefix, ok := p.MatchRegex(terms); ok {
				m := pluginMode(p, prefix, terms[len(prefix):])
				return resolution(m, m.Query)
			}
		}
	}

	return resolution(Default(terms), terms)
}

// InitialInput maps a mode name given on the command line to the text the
// input box starts with.
func (r *Resolver) InitialInput(name string) string {
	for _, p := range r.plugins {
		if p.Name == name && p.Help != "" {
			return p.Help
		}
	}
	return name
}

func (r *Resolver) matchWeb(terms string) (ActiveMode, bool) {
	prefix, rest, found := strings.Cut(terms, " ")
	if !found || prefix == "" {
		return ActiveMode{}, false
	}

	for _, rule := range r.web {
		for _, shortcut := range rule.Matches {
			if shortcut != prefix {
				continue
			}
			icon := r.webIcon
			if rule.Icon != "" {
				icon = &protocol.IconSource{Name: rule.Icon}
			}
			return ActiveMode{
				Kind:       KindPlugin,
				PluginName: WebPlugin,
				Modifier:   prefix,
				Query:      rest,
				History:    true,
				Icon:       icon,
			}, true
		}
	}
	return ActiveMode{}, false
}

func pluginMode(p plugin.Plugin, modifier, query string) ActiveMode {
	return ActiveMode{
		Kind:       KindPlugin,
		PluginName: p.Name,
		Modifier:   modifier,
		Query:      query,
		History:    p.History,
		Isolate:    p.Isolate,
		Icon:       p.Icon,
	}
}

func resolution(m ActiveMode, display string) Resolution {
	return Resolution{Mode: m, Display: display, PopQuery: m.PopQuery()}
}
