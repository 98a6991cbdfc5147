package walk

import (
	"fmt"
	"strings"
)

// ownerReminder is the message for the cat's owner; it names the cat.
func ownerReminder(offsetMinutes int, catName string) string {
	return fmt.Sprintf("%s %s is waiting 🐱", reminderText(offsetMinutes), capitalize(catName))
}

// connectedReminder is the generic message for connected users.
func connectedReminder(offsetMinutes int) string {
	return reminderText(offsetMinutes)
}

func reminderText(offsetMinutes int) string {
	switch offsetMinutes {
	case 60:
		return "1 hour until the walk! ⏰"
	case 30:
		return "30 minutes until the walk! ⏰"
	case 10:
		return "10 minutes until the walk! ⏰"
	case 0:
		return "Time to walk! 🚶"
	default:
		return fmt.Sprintf("%d minutes until the walk! ⏰", offsetMinutes)
	}
}

func dueSoonMessage(minutesLeft int) string {
	return fmt.Sprintf("%d minutes until the walk!", minutesLeft)
}

func timeNowMessage() string {
	return "Time to walk! 🐱"
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
