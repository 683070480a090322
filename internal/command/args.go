package command

import (
	"strconv"

	"github.com/jbweber/homelab/croft/internal/vm"
)

// AuthArgs carries the credentials supplied with AUTH.
type AuthArgs struct {
	MachineID string
	Password  string
}

// AddVMArgs carries a full resource declaration: target machine plus
// replacement RAM, CPU and disk list.
type AddVMArgs struct {
	MachineID string
	RAM       int64
	CPU       int64
	Disks     []vm.Disk
}

// UpdateVMArgs carries replacement RAM/CPU for the session's own
// machine. Disks is nil when no well-formed disk token was supplied,
// in which case the existing disk list must be left untouched.
type UpdateVMArgs struct {
	RAM   int64
	CPU   int64
	Disks []vm.Disk
}

// ParseAuth validates AUTH arguments: machine id and password.
func ParseAuth(args []string) (AuthArgs, error) {
	if len(args) < 2 {
		return AuthArgs{}, ErrMissingArguments
	}
	return AuthArgs{MachineID: args[0], Password: args[1]}, nil
}

// ParseAddVM validates ADD_VM arguments: id, ram and cpu are
// mandatory; trailing disk tokens are parsed leniently. A non-integer
// ram or cpu aborts the whole command.
func ParseAddVM(args []string) (AddVMArgs, error) {
	if len(args) < 3 {
		return AddVMArgs{}, ErrMissingArguments
	}
	ram, err := parseInt(args[1])
	if err != nil {
		return AddVMArgs{}, ErrBadNumber
	}
	cpu, err := parseInt(args[2])
	if err != nil {
		return AddVMArgs{}, ErrBadNumber
	}
	return AddVMArgs{
		MachineID: args[0],
		RAM:       ram,
		CPU:       cpu,
		Disks:     ParseDiskTokens(args[3:]),
	}, nil
}

// ParseUpdateVM validates UPDATE_VM arguments: ram and cpu are
// mandatory, disk tokens optional and lenient.
func ParseUpdateVM(args []string) (UpdateVMArgs, error) {
	if len(args) < 2 {
		return UpdateVMArgs{}, ErrMissingArguments
	}
	ram, err := parseInt(args[0])
	if err != nil {
		return UpdateVMArgs{}, ErrBadNumber
	}
	cpu, err := parseInt(args[1])
	if err != nil {
		return UpdateVMArgs{}, ErrBadNumber
	}
	return UpdateVMArgs{RAM: ram, CPU: cpu, Disks: ParseDiskTokens(args[2:])}, nil
}

func parseInt(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
