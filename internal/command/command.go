package command

import (
	"strings"

	"github.com/jbweber/homelab/croft/internal/vm"
)

// Name identifies one command in the fixed wire vocabulary.
type Name string

const (
	Auth           Name = "AUTH"
	AddVM          Name = "ADD_VM"
	UpdateVM       Name = "UPDATE_VM"
	ListConnected  Name = "LIST_CONNECTED"
	ListAuthorized Name = "LIST_AUTHORIZED"
	ListAll        Name = "LIST_ALL"
	ListDisks      Name = "LIST_DISKS"
	Logout         Name = "LOGOUT"
)

var vocabulary = map[string]Name{
	string(Auth):           Auth,
	string(AddVM):          AddVM,
	string(UpdateVM):       UpdateVM,
	string(ListConnected):  ListConnected,
	string(ListAuthorized): ListAuthorized,
	string(ListAll):        ListAll,
	string(ListDisks):      ListDisks,
	string(Logout):         Logout,
}

// Request is one parsed wire line: the command name plus its raw
// argument tokens. Argument shape is validated per command by the
// Parse* helpers, never here.
type Request struct {
	Name Name
	Args []string
}

// Parse splits one line into a Request. The command token is matched
// case-insensitively; an empty line returns ErrEmptyLine and must
// produce no response.
func Parse(line string) (Request, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Request{}, ErrEmptyLine
	}
	name, ok := vocabulary[strings.ToUpper(fields[0])]
	if !ok {
		return Request{}, ErrUnknownCommand
	}
	return Request{Name: name, Args: fields[1:]}, nil
}

// IsList reports whether the command is one of the four read-only
// inventory queries.
func (n Name) IsList() bool {
	switch n {
	case ListConnected, ListAuthorized, ListAll, ListDisks:
		return true
	}
	return false
}

// ParseDiskTokens parses "id:capacity" tokens into disks, preserving
// order of appearance. Malformed tokens (no separator, non-integer
// capacity) are dropped silently; this leniency is part of the wire
// contract, not an error path.
func ParseDiskTokens(tokens []string) []vm.Disk {
	var disks []vm.Disk
	for _, tok := range tokens {
		id, capStr, ok := strings.Cut(tok, ":")
		if !ok {
			continue
		}
		capacity, err := parseInt(capStr)
		if err != nil {
			continue
		}
		disks = append(disks, vm.Disk{ID: id, Capacity: capacity})
	}
	return disks
}
