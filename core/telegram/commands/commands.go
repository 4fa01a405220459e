package commands

import tele "gopkg.in/telebot.v4"

// Command describes a slash command and how it is exposed.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly restricts the command to the admin allow-list.
	AdminOnly bool
	// Hidden keeps the command out of the Telegram command menu.
	Hidden  bool
	Aliases []string
	// InterruptsFlow lets the command run while a conversation is in progress.
	InterruptsFlow bool
}
