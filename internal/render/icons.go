package render

import (
	"regexp"
	"sort"
)

const svgOpen = `<svg class="inline-icon" xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2" stroke-linecap="round" stroke-linejoin="round">`

// icons is the closed set of inline icons a reply may reference.
var icons = map[string]string{
	"home":       svgOpen + `<path d="M3 9l9-7 9 7v11a2 2 0 0 1-2 2H5a2 2 0 0 1-2-2z"/><polyline points="9 22 9 12 15 12 15 22"/></svg>`,
	"wallet":     svgOpen + `<path d="M21 12V7H5a2 2 0 0 1 0-4h14v4"/><path d="M3 5v14a2 2 0 0 0 2 2h16v-5"/><path d="M18 12a2 2 0 0 0 0 4h4v-4Z"/></svg>`,
	"chart":      svgOpen + `<line x1="12" y1="20" x2="12" y2="10"/><line x1="18" y1="20" x2="18" y2="4"/><line x1="6" y1="20" x2="6" y2="16"/></svg>`,
	"bolt":       svgOpen + `<polygon points="13 2 3 14 12 14 11 22 21 10 12 10 13 2"/></svg>`,
	"lightbulb":  svgOpen + `<line x1="9" y1="18" x2="15" y2="18"/><line x1="10" y1="22" x2="14" y2="22"/><path d="M15.09 14c.18-.98.65-1.74 1.41-2.5A4.65 4.65 0 0 0 18 8 6 6 0 0 0 6 8c0 1 .23 2.23 1.5 3.5A4.61 4.61 0 0 1 8.91 14"/></svg>`,
	"trending":   svgOpen + `<polyline points="23 6 13.5 15.5 8.5 10.5 1 18"/><polyline points="17 6 23 6 23 12"/></svg>`,
	"target":     svgOpen + `<circle cx="12" cy="12" r="10"/><circle cx="12" cy="12" r="6"/><circle cx="12" cy="12" r="2"/></svg>`,
	"alert":      svgOpen + `<circle cx="12" cy="12" r="10"/><line x1="12" y1="8" x2="12" y2="12"/><line x1="12" y1="16" x2="12.01" y2="16"/></svg>`,
	"calculator": svgOpen + `<rect x="4" y="2" width="16" height="20" rx="2"/><rect x="8" y="6" width="8" height="4" rx="1"/><line x1="8" y1="14" x2="8" y2="14"/><line x1="12" y1="14" x2="12" y2="14"/><line x1="16" y1="14" x2="16" y2="14"/></svg>`,
	"check":      svgOpen + `<polyline points="20 6 9 17 4 12"/></svg>`,
}

var iconPattern = regexp.MustCompile(`\[icon:(\w+)\]`)

// ReplaceIcons substitutes known [icon:NAME] placeholders. Unknown names are
// left exactly as written.
func ReplaceIcons(text string) string {
	return iconPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := iconPattern.FindStringSubmatch(match)[1]
		if svg, ok := icons[name]; ok {
			return svg
		}
		return match
	})
}

// Icon returns the markup for name.
func Icon(name string) (string, bool) {
	svg, ok := icons[name]
	return svg, ok
}

func IconNames() []string {
	names := make([]string, 0, len(icons))
	for name := range icons {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
