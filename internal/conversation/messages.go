package conversation

import (
	"fmt"

	"motomaster/internal/dto"
)

type Keyboard int

const (
	KeyboardNone Keyboard = iota
	KeyboardServices
	KeyboardRemove
	KeyboardStart
)

type Reply struct {
	Text     string
	Keyboard Keyboard
}

const (
	textWelcome            = "🚀 Welcome to Motomaster! Choose a service:"
	textInvalidService     = "⚠️ Please choose a service from the list:"
	textAskName            = "📝 Enter your name:"
	textAskPhone           = "📱 Enter your phone number:"
	textAskCredential      = "🔑 Enter your password:"
	textCancelled          = "❌ Action cancelled. Press /start to continue."
	textIdleHint           = "Press /start to place an order."
	textStorageFailure     = "⚠️ Error while processing the order. Please try again later."
	textGenericFailure     = "⚠️ Something went wrong. Please try again."
	textCredentialMismatch = "⚠️ This password does not match the one registered for this name and phone. Press /start to try again."
)

var (
	replyWelcome            = Reply{Text: textWelcome, Keyboard: KeyboardServices}
	replyInvalidService     = Reply{Text: textInvalidService, Keyboard: KeyboardServices}
	replyAskName            = Reply{Text: textAskName, Keyboard: KeyboardRemove}
	replyAskPhone           = Reply{Text: textAskPhone, Keyboard: KeyboardRemove}
	replyAskCredential      = Reply{Text: textAskCredential, Keyboard: KeyboardRemove}
	replyCancelled          = Reply{Text: textCancelled, Keyboard: KeyboardStart}
	replyIdleHint           = Reply{Text: textIdleHint, Keyboard: KeyboardStart}
	replyStorageFailure     = Reply{Text: textStorageFailure, Keyboard: KeyboardStart}
	replyGenericFailure     = Reply{Text: textGenericFailure, Keyboard: KeyboardStart}
	replyCredentialMismatch = Reply{Text: textCredentialMismatch, Keyboard: KeyboardStart}
)

func confirmationReply(result *dto.PlaceOrderResult) Reply {
	return Reply{
		Text: fmt.Sprintf("✅ Thank you, %s! Your order #%d has been accepted.\nService: %s\nWe will contact you shortly.",
			result.DisplayName, result.OrderID, result.ServiceCode.Label()),
		Keyboard: KeyboardStart,
	}
}

// promptFor is the question asked while in state.
func promptFor(state State) Reply {
	switch state {
	case StateChoosingService:
		return replyWelcome
	case StateEnteringName:
		return replyAskName
	case StateEnteringPhone:
		return replyAskPhone
	case StateEnteringCredential:
		return replyAskCredential
	default:
		return replyIdleHint
	}
}
