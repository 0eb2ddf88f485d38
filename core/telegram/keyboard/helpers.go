// Package keyboard builds Telegram reply keyboards.
package keyboard

import (
	"slices"

	tele "gopkg.in/telebot.v4"
)

// RemoveKeyboard returns a markup that hides the reply keyboard.
func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

// ReplyButtons builds a resized reply keyboard, one keyboard row per non-empty row of labels.
func ReplyButtons(rows ...[]string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}
	keyboard := make([]tele.Row, 0, len(rows))
	for _, labels := range rows {
		if len(labels) == 0 {
			continue
		}
		row := make(tele.Row, 0, len(labels))
		for _, label := range labels {
			row = append(row, markup.Text(label))
		}
		keyboard = append(keyboard, row)
	}
	markup.Reply(keyboard...)
	return markup
}

// Chunk splits items into rows of at most n, preserving order. Rows are copies.
// n below 1 is treated as 1.
func Chunk[T any](items []T, n int) [][]T {
	n = max(n, 1)
	rows := make([][]T, 0, (len(items)+n-1)/n)
	for row := range slices.Chunk(items, n) {
		rows = append(rows, slices.Clone(row))
	}
	return rows
}
