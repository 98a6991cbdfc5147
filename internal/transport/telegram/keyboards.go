package telegram

import (
	tele "gopkg.in/telebot.v4"

	"catbot/internal/pet"
)

// Reply-keyboard labels (persistent main menu).
const (
	menuMyCat   = "My cat 🐱"
	menuWalk    = "Walk 🚶"
	menuMessage = "Send message 💌"
)

// Callback button uniques. Payload goes in Btn.Data.
var (
	btnColor     = tele.Btn{Unique: "color"}
	btnAction    = tele.Btn{Unique: "action"}
	btnWalk      = tele.Btn{Unique: "walk"}
	btnCancelMsg = tele.Btn{Unique: "cancel_message"}
)

// Walk control payloads; any other payload is a quick "HH:MM" pick.
const (
	walkCancelSetup = "cancel"
	walkDeleteTime  = "delete"
)

var quickWalkTimes = []string{"13:00", "14:00", "15:00", "16:00"}

func mainKeyboard() *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{ResizeKeyboard: true}
	m.Reply(
		m.Row(m.Text(menuMyCat), m.Text(menuWalk)),
		m.Row(m.Text(menuMessage)),
	)
	return m
}

func colorKeyboard() *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	colors := pet.Colors()
	rows := make([]tele.Row, 0, (len(colors)+1)/2)
	for i := 0; i < len(colors); i += 2 {
		row := []tele.Btn{m.Data(string(colors[i]), btnColor.Unique, string(colors[i]))}
		if i+1 < len(colors) {
			row = append(row, m.Data(string(colors[i+1]), btnColor.Unique, string(colors[i+1])))
		}
		rows = append(rows, m.Row(row...))
	}
	m.Inline(rows...)
	return m
}

func actionsKeyboard() *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	m.Inline(
		m.Row(
			m.Data("Feed 🍽", btnAction.Unique, string(pet.ActionFeed)),
			m.Data("Play 🎾", btnAction.Unique, string(pet.ActionPlay)),
		),
		m.Row(
			m.Data("Sleep 💤", btnAction.Unique, string(pet.ActionSleep)),
			m.Data("Status 📋", btnAction.Unique, string(pet.ActionStatus)),
		),
	)
	return m
}

// walkKeyboard offers quick times only while no walk time is set, plus the
// setup-cancel button and, when a time exists, its delete button.
func walkKeyboard(hasWalkTime bool) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	var rows []tele.Row
	if !hasWalkTime {
		rows = append(rows,
			m.Row(
				m.Data(quickWalkTimes[0]+" 🕐", btnWalk.Unique, quickWalkTimes[0]),
				m.Data(quickWalkTimes[1]+" 🕐", btnWalk.Unique, quickWalkTimes[1]),
			),
			m.Row(
				m.Data(quickWalkTimes[2]+" 🕐", btnWalk.Unique, quickWalkTimes[2]),
				m.Data(quickWalkTimes[3]+" 🕐", btnWalk.Unique, quickWalkTimes[3]),
			),
		)
	}
	rows = append(rows, m.Row(m.Data("Cancel ❌", btnWalk.Unique, walkCancelSetup)))
	if hasWalkTime {
		rows = append(rows, m.Row(m.Data("Delete walk time 🗑", btnWalk.Unique, walkDeleteTime)))
	}
	m.Inline(rows...)
	return m
}

func cancelSetupKeyboard() *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	m.Inline(m.Row(m.Data("Cancel ❌", btnWalk.Unique, walkCancelSetup)))
	return m
}

func cancelMessageKeyboard() *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	m.Inline(m.Row(m.Data("Cancel ❌", btnCancelMsg.Unique)))
	return m
}
