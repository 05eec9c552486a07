package app

// Command is the mode the binary runs in.
type Command string

const (
	// CommandServe runs the HTTP API.
	CommandServe Command = "serve"
	// CommandMigrate applies the embedded schema migrations and exits.
	CommandMigrate Command = "migrate"
	// CommandConsumer runs the memo event consumer.
	CommandConsumer Command = "consumer"
)

// ParseCommand picks the subcommand from args.  No argument or an
// unknown one means serve.
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	switch Command(args[0]) {
	case CommandMigrate:
		return CommandMigrate
	case CommandConsumer:
		return CommandConsumer
	}
	return CommandServe
}
