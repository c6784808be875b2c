package app

import "fmt"

// Menu commands, matched case-insensitively at idle.
const (
	cmdCreateQuiz  = "create quiz"
	cmdTakeQuiz    = "take quiz"
	cmdMyQuizzes   = "my quizzes"
	cmdAddAdmin    = "add admin"
	cmdRemoveAdmin = "remove admin"
	cmdListAdmins  = "list admins"
)

const (
	roleOwner       = "👑 Owner"
	roleAdmin       = "🛡 Admin"
	roleParticipant = "👤 Participant"
)

const menuHint = "📋 Available commands:\n" +
	"• take quiz — redeem an access code and submit answers\n" +
	"• create quiz — author a new quiz (admins)\n" +
	"• my quizzes — your quizzes, results and codes (admins)\n" +
	"• add admin / remove admin / list admins (owner)"

func welcomeText(name, role string) string {
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf("👋 Welcome, %s!\nYou are signed in as: %s\n\n%s", name, role, menuHint)
}

const answerRules = "✅ ACCEPTED ANSWERS:\n" +
	"• A, B, C\n" +
	"• Integers (e.g. 1, -12, 12345)\n" +
	"• Simple fractions (e.g. 3/4, -2/3)\n" +
	"• Decimals (e.g. 0.667, -0.75, 123.4)\n" +
	"• At most 5 characters (or 6 with a minus sign)\n"

const authoringInstructions = "✏️ ENTER QUESTIONS AND SCORES LINE BY LINE, EACH AS:\n\n" +
	"NUMBER ANSWER SCORE\n" +
	"Scores must be positive multiples of 0.5 (e.g. 1, 2.5, 3.0)\n\n" +
	answerRules +
	"\n✅ EXAMPLES:\n" +
	"1 A 1\n" +
	"2 3/4 0.5\n" +
	"3 -2/3 1.5\n" +
	"4 -0.75 2\n" +
	"5 0.667 2.5\n" +
	"6 12345 1\n" +
	"7 123.4 3\n" +
	"8 -12.3 2.5\n" +
	"9 -1.5 1.5\n" +
	"10 B 1"

const takingInstructions = "✍️ Enter your answers in the format:\n\n" +
	"NUMBER ANSWER\n" +
	"One line per question, the answer at most 5 characters (6 with a minus sign).\n\n" +
	answerRules +
	"\n✅ EXAMPLES:\n" +
	"1 A\n2 3/4\n3 -2/3\n4 -0.75\n5 0.667\n" +
	"6 12345\n7 123.4\n8 -12.3\n9 -1.5\n10 B"

const deadlineInstructions = "📅 Enter the deadline as:\nHH:MM or HH:MM DD.MM.YYYY"

const deadlineFormat = "15:04 02.01.2006"
