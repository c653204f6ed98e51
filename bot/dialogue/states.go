// Package dialogue implements the arcanum conversation: it walks a user through
// gender, name and birthdate prompts and answers with the matching arcanum document.
// The engine is transport-free; it returns ordered Actions for a transport to deliver.
package dialogue

import "github.com/m3rciful/arcanumbot/core/telegram/state"

// Dialogue states.
const (
	StateStart            state.State = "START"
	StateAwaitGender      state.State = "AWAIT_GENDER"
	StateAwaitName        state.State = "AWAIT_NAME"
	StateConfirmName      state.State = "CONFIRM_NAME"
	StateAwaitBirthdate   state.State = "AWAIT_BIRTHDATE"
	StateConfirmBirthdate state.State = "CONFIRM_BIRTHDATE"
	StateAwaitMore        state.State = "AWAIT_MORE"
)

// Session attribute keys.
const (
	AttrGender    = "gender"
	AttrName      = "name"
	AttrBirthdate = "birthdate"
)

// ResetCommand restarts the dialogue from any state; matched case-insensitively.
const ResetCommand = "/start"

// Choice tokens carried by inline buttons.
const (
	TokenMale   = "gender_male"
	TokenFemale = "gender_female"
	TokenYes    = "confirm_yes"
	TokenNo     = "confirm_no"
)

// Tokens lists every choice token the dialogue emits.
func Tokens() []string {
	return []string{TokenMale, TokenFemale, TokenYes, TokenNo}
}

func isKnownState(st state.State) bool {
	switch st {
	case StateStart, StateAwaitGender, StateAwaitName, StateConfirmName,
		StateAwaitBirthdate, StateConfirmBirthdate, StateAwaitMore:
		return true
	}
	return false
}
