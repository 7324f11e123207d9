package protocol

import (
	"strings"
)

// Verb identifies a requested operation.
type Verb int

const (
	VerbList Verb = iota + 1
	VerbGet
	VerbAdd
	VerbDelete
)

var verbNames = map[Verb]string{
	VerbList:   "list",
	VerbGet:    "get",
	VerbAdd:    "add",
	VerbDelete: "delete",
}

func (v Verb) String() string {
	if name, ok := verbNames[v]; ok {
		return name
	}
	return "unknown"
}

// LookupVerb matches name against the known verbs, ignoring case.
func LookupVerb(name string) (Verb, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for v, n := range verbNames {
		if n == name {
			return v, true
		}
	}
	return 0, false
}

// Command is one parsed request.
type Command struct {
	Verb Verb
	Args []string
}

// ParseError describes a request that could not be turned into a Command.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return e.Reason
}

const (
	reasonUnrecognized  = "Unrecognized command"
	reasonAddIncomplete = "ADD command needs filename and file content"
)

// Parse turns the text of one frame into a Command.
//
// The text is split on single spaces into at most three parts, so the
// content of an ADD is taken intact as the remainder of the line.
// Trailing spaces are kept so that "ADD name " carries empty content. GET
// and DELETE without a name parse to an empty argument list; rejecting
// that is left to the executor.
func Parse(text string) (Command, error) {
	text = strings.TrimRight(strings.TrimLeft(text, " \t\r\n"), "\t\r\n")
	tokens := strings.SplitN(text, " ", 3)

	verb, ok := LookupVerb(tokens[0])
	if !ok {
		return Command{}, &ParseError{Reason: reasonUnrecognized}
	}

	cmd := Command{Verb: verb, Args: []string{}}
	switch verb {
	case VerbGet, VerbDelete:
		if len(tokens) > 1 {
			cmd.Args = []string{tokens[1]}
		}
	case VerbAdd:
		if len(tokens) < 3 {
			return Command{}, &ParseError{Reason: reasonAddIncomplete}
		}
		cmd.Args = []string{tokens[1], tokens[2]}
	}
	return cmd, nil
}

// Format renders a command back into request text, without terminator.
func (c Command) Format() string {
	parts := append([]string{strings.ToUpper(c.Verb.String())}, c.Args...)
	return strings.Join(parts, " ")
}
