package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/paiml/duende/internal/core"
)

var signalName string

var signalCmd = &cobra.Command{
	Use:   "signal",
	Short: "Deliver a signal to a running duende supervisor",
	Long: `Sends an OS-level signal to the supervisor process recorded in the
pidfile. The supervisor relays Hup/Usr1/Usr2/Cont to every daemon
it manages; Term/Int/Quit begin a coordinated shutdown, per the signal
surface every daemon's cooperative context honors. STOP cannot be
caught, so it is not relayed: it suspends the supervisor process itself.`,
	RunE: runSignal,
}

func init() {
	signalCmd.Flags().StringVar(&pidFilePath, "pidfile", defaultPIDFilePath, "path to the supervisor's pidfile")
	signalCmd.Flags().StringVar(&signalName, "signal", "TERM", "signal to deliver: HUP, INT, QUIT, TERM, USR1, USR2, STOP, CONT")
	rootCmd.AddCommand(signalCmd)
}

var signalsByName = map[string]core.Signal{
	"HUP":  core.SigHup,
	"INT":  core.SigInt,
	"QUIT": core.SigQuit,
	"TERM": core.SigTerm,
	"USR1": core.SigUsr1,
	"USR2": core.SigUsr2,
	"STOP": core.SigStop,
	"CONT": core.SigCont,
}

func runSignal(cmd *cobra.Command, args []string) error {
	sig, ok := signalsByName[signalName]
	if !ok {
		return fmt.Errorf("unrecognized signal %q", signalName)
	}

	pid, err := readPIDFile(pidFilePath)
	if err != nil {
		return err
	}
	if !pidIsAlive(pid) {
		return fmt.Errorf("no running supervisor at pid %d", pid)
	}

	if err := unix.Kill(pid, unix.Signal(sig)); err != nil {
		return fmt.Errorf("deliver %s to pid %d: %w", signalName, pid, err)
	}
	fmt.Printf("sent %s to pid %d\n", signalName, pid)
	return nil
}
