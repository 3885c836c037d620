package cli

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
)

var (
	helpTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Italic(true).
			MarginBottom(1)

	helpSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(accentColor).
				MarginTop(1)

	helpFlagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00AA00")).
			Bold(true)

	helpArgStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00AAAA")).
			Bold(true)

	helpDefaultStyle = lipgloss.NewStyle().
				Foreground(mutedColor).
				Italic(true)
)

// StyledHelpPrinter returns a kong help printer rendering the selected
// command with lipgloss.
func StyledHelpPrinter(options kong.HelpOptions) func(options kong.HelpOptions, ctx *kong.Context) error {
	return func(options kong.HelpOptions, ctx *kong.Context) error {
		fmt.Fprint(ctx.Stdout, renderHelp(ctx))
		return nil
	}
}

func renderHelp(ctx *kong.Context) string {
	node := ctx.Selected()
	if node == nil {
		node = ctx.Model.Node
	}

	var sb strings.Builder
	sb.WriteString(helpTitleStyle.Render("onair"))
	sb.WriteString("\n")
	desc := node.Help
	if desc == "" {
		desc = ctx.Model.Help
	}
	if desc != "" {
		sb.WriteString(helpDescStyle.Render(desc))
		sb.WriteString("\n")
	}

	sb.WriteString(helpSectionStyle.Render("Usage:"))
	sb.WriteString("\n  ")
	sb.WriteString(usage(ctx, node))
	sb.WriteString("\n")

	if cmds := commands(node); len(cmds) > 0 {
		writeSection(&sb, "Commands:", cmds, helpArgStyle)
	}
	if args := arguments(node); len(args) > 0 {
		writeSection(&sb, "Arguments:", args, helpArgStyle)
	}
	writeSection(&sb, "Flags:", flags(ctx, node), helpFlagStyle)

	sb.WriteString("\n")
	return sb.String()
}

type entry struct {
	name, help, defaultVal string
}

func writeSection(sb *strings.Builder, title string, entries []entry, style lipgloss.Style) {
	sb.WriteString("\n")
	sb.WriteString(helpSectionStyle.Render(title))
	sb.WriteString("\n")
	for _, e := range entries {
		sb.WriteString("  ")
		sb.WriteString(style.Render(e.name))
		if e.help != "" {
			sb.WriteString("  ")
			sb.WriteString(e.help)
		}
		if e.defaultVal != "" {
			sb.WriteString(" ")
			sb.WriteString(helpDefaultStyle.Render("(default: " + e.defaultVal + ")"))
		}
		sb.WriteString("\n")
	}
}

func usage(ctx *kong.Context, node *kong.Node) string {
	path := ctx.Model.Name
	if node != ctx.Model.Node {
		path += " " + node.Path()
	}
	switch {
	case len(node.Children) > 0:
		return path + " <command> [flags]"
	case len(node.Positional) > 0:
		return path + " [flags] " + node.Summary()
	default:
		return path + " [flags]"
	}
}

func commands(node *kong.Node) []entry {
	var out []entry
	for _, child := range node.Children {
		if child.Hidden {
			continue
		}
		out = append(out, entry{name: child.Name, help: child.Help})
	}
	return out
}

func arguments(node *kong.Node) []entry {
	var out []entry
	for _, arg := range node.Positional {
		out = append(out, entry{name: arg.Summary(), help: arg.Help})
	}
	return out
}

func flags(ctx *kong.Context, node *kong.Node) []entry {
	out := []entry{{name: "-h, --help", help: "Show context-sensitive help."}}

	all := node.Flags
	if node != ctx.Model.Node {
		all = append(append([]*kong.Flag(nil), ctx.Model.Node.Flags...), all...)
	}
	for _, f := range all {
		if f.Name == "help" || f.Hidden {
			continue
		}
		name := "--" + f.Name
		if f.Short != 0 {
			name = fmt.Sprintf("-%c, --%s", f.Short, f.Name)
		}
		if !f.IsBool() {
			name += "=" + f.FormatPlaceHolder()
		}
		out = append(out, entry{name: name, help: f.Help, defaultVal: f.Default})
	}
	return out
}
