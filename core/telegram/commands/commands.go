// Package commands describes slash commands exposed by the bot.
package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command is a slash command registered with the bot.
type Command struct {
	Handler tele.HandlerFunc
	// Description is shown in the Telegram command menu and is required.
	Description string
	// AdminOnly commands are wrapped with the owner check and never listed.
	AdminOnly bool
	Hidden    bool
	// Aliases are matched with or without the leading slash.
	Aliases []string
}

// Listed reports whether the command belongs in the public command menu.
func (c Command) Listed() bool {
	return !c.Hidden && !c.AdminOnly
}
