// Package coach analyzes shell commands the assistant is about to run and
// suggests the native tool (Read, Write, Edit, Grep, Glob) when one exists.
//
// Commands are parsed with mvdan.cc/sh rather than split naively, so quoting,
// pipes, heredocs and redirects are understood. The analysis is advisory: a
// nil result means the command is fine as-is.
package coach

import (
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Suggestion tells the assistant which native tool to use instead.
type Suggestion struct {
	// Tool is the suggested native tool name.
	Tool string
	// Reason is the coaching message shown to the assistant.
	Reason string
}

// command is one simple command extracted from the parsed script.
type command struct {
	name     string
	args     []string
	redirOut bool
	heredoc  bool
	piped    bool
}

// Analyze inspects a shell command for coaching opportunities.
// Returns nil when the command has no native-tool replacement, including
// when it cannot be parsed; an unparseable command is the host's problem.
func Analyze(commandLine string) *Suggestion {
	cmds, err := parse(commandLine)
	if err != nil {
		return nil
	}

	for _, c := range cmds {
		if s := analyzeCommand(c); s != nil {
			return s
		}
	}
	return nil
}

func analyzeCommand(c command) *Suggestion {
	switch c.name {
	case "sed":
		if hasInPlaceFlag(c.args) {
			return suggest("Edit", "Use the Edit tool instead of 'sed -i' for file modifications. "+
				"The Edit tool is more reliable and won't cause 'File unexpectedly modified' errors.")
		}
	case "awk":
		if c.redirOut {
			return suggest("Edit", "Use the Edit tool instead of 'awk' with a redirect for file modifications.")
		}
	case "echo", "printf":
		if c.redirOut {
			return suggest("Write", "Use the Write tool instead of 'echo/printf' redirects for creating or overwriting files.")
		}
	case "cat":
		if c.heredoc && c.redirOut {
			return suggest("Write", "Use the Write tool instead of a 'cat' heredoc for creating files.")
		}
		if !c.piped && !c.redirOut && !c.heredoc && hasFileArg(c.args) {
			return suggest("Read", "Use the Read tool instead of 'cat' for viewing file contents. "+
				"The Read tool supports offset/limit for large files.")
		}
	case "head", "tail":
		// Flags only usually means piped input (cmd | head -50).
		if !c.piped && hasFileArg(c.args) {
			return suggest("Read", fmt.Sprintf("Use the Read tool instead of '%s' for viewing file contents.", c.name))
		}
	case "grep", "egrep", "fgrep":
		if hasRecursiveFlag(c.args) {
			return suggest("Grep", "Use the Grep tool instead of recursive 'grep' for searching file contents. "+
				"The Grep tool is optimized for codebase search.")
		}
	case "find":
		if hasNameFlag(c.args) {
			return suggest("Glob", "Use the Glob tool instead of 'find -name' for locating files. "+
				"The Glob tool is faster and designed for codebase exploration.")
		}
	}
	return nil
}

func suggest(tool, reason string) *Suggestion {
	return &Suggestion{Tool: tool, Reason: "COACHING: " + reason}
}

// parse extracts simple commands with their redirect and pipeline context.
func parse(commandLine string) ([]command, error) {
	parser := syntax.NewParser(
		syntax.Variant(syntax.LangBash),
		syntax.KeepComments(false),
	)
	file, err := parser.Parse(strings.NewReader(commandLine), "")
	if err != nil {
		return nil, err
	}

	// Statements that are a side of a pipe operator.
	piped := make(map[*syntax.Stmt]bool)
	syntax.Walk(file, func(node syntax.Node) bool {
		if bin, ok := node.(*syntax.BinaryCmd); ok {
			if bin.Op == syntax.Pipe || bin.Op == syntax.PipeAll {
				piped[bin.X] = true
				piped[bin.Y] = true
			}
		}
		return true
	})

	var cmds []command
	syntax.Walk(file, func(node syntax.Node) bool {
		stmt, ok := node.(*syntax.Stmt)
		if !ok {
			return true
		}
		call, ok := stmt.Cmd.(*syntax.CallExpr)
		if !ok || len(call.Args) == 0 {
			return true
		}

		c := command{name: wordToString(call.Args[0]), piped: piped[stmt]}
		if c.name == "" {
			return true
		}
		for _, arg := range call.Args[1:] {
			c.args = append(c.args, wordToString(arg))
		}
		for _, redir := range stmt.Redirs {
			switch redir.Op {
			case syntax.RdrOut, syntax.AppOut, syntax.RdrAll, syntax.AppAll:
				c.redirOut = true
			case syntax.Hdoc, syntax.DashHdoc:
				c.heredoc = true
			}
		}
		cmds = append(cmds, c)
		return true
	})

	return cmds, nil
}

// wordToString flattens a shell word into a plain string, with placeholders
// for dynamic parts.
func wordToString(word *syntax.Word) string {
	var sb strings.Builder
	for _, part := range word.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			sb.WriteString(p.Value)
		case *syntax.SglQuoted:
			sb.WriteString(p.Value)
		case *syntax.DblQuoted:
			for _, qp := range p.Parts {
				if lit, ok := qp.(*syntax.Lit); ok {
					sb.WriteString(lit.Value)
				}
			}
		case *syntax.ParamExp:
			sb.WriteString("$" + p.Param.Value)
		case *syntax.CmdSubst:
			sb.WriteString("$()")
		}
	}
	return sb.String()
}

func hasInPlaceFlag(args []string) bool {
	for _, a := range args {
		if a == "-i" || strings.HasPrefix(a, "-i.") || a == "--in-place" || strings.HasPrefix(a, "--in-place=") {
			return true
		}
	}
	return false
}

func hasRecursiveFlag(args []string) bool {
	for _, a := range args {
		if a == "-r" || a == "-R" || a == "--recursive" {
			return true
		}
		// Bundled short flags like -rn.
		if strings.HasPrefix(a, "-") && !strings.HasPrefix(a, "--") && strings.ContainsAny(a, "rR") {
			return true
		}
	}
	return false
}

func hasNameFlag(args []string) bool {
	for _, a := range args {
		if a == "-name" || a == "-iname" {
			return true
		}
	}
	return false
}

// hasFileArg reports whether any argument looks like a file operand rather
// than a flag.
func hasFileArg(args []string) bool {
	for _, a := range args {
		if !strings.HasPrefix(a, "-") && a != "" {
			return true
		}
	}
	return false
}
