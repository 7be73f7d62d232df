package workflow

import (
	"fmt"
	"strings"

	"upscale-bot/internal/tier"
)

const (
	CallbackCheckMembership = "check_membership"

	msgUploading   = "📤 Uploading image..."
	msgProcessing  = "⏳ Processing image..."
	msgDownloading = "📥 Downloading result..."
	msgNeedTier    = "⚠️ Please select upscale quality first:"
	msgSendImage   = "📸 Send me an image to upscale!"
	msgNotAnImage  = "⚠️ Please send an image file (JPG, PNG, etc.)"
	msgStillMember = "❌ You still need to join the channel first!"
	msgBusy        = "⏳ Your previous image is still processing. Please wait for it to finish."
	msgMemberAgain = "✅ Great! You're now a member. Choose your upscale quality:"
	msgDisclosure  = "ℹ️ Your image is sent to an external enhancement service for processing. It is deleted from this bot as soon as your result is delivered."
)

func (o *Orchestrator) joinPrompt() (string, Keyboard) {
	channel := o.Channel
	text := "🔒 To use this bot for FREE, you must join our channel first!\n\n" +
		"📢 Channel: " + channel + "\n\n" +
		"After joining, click \"Check Again\" to continue."
	kb := Keyboard{{
		{Text: "📢 Join Channel", URL: "https://t.me/" + strings.TrimPrefix(channel, "@")},
		{Text: "✅ Check Again", Data: CallbackCheckMembership},
	}}
	return text, kb
}

func (o *Orchestrator) welcome() string {
	return fmt.Sprintf("🖼️ Welcome to %s Image Upscaler!\n\nChoose your upscale quality and send me an image:", o.brand())
}

func (o *Orchestrator) help() string {
	return "ℹ️ How to use this bot:\n\n" +
		"1. Make sure you're joined to " + o.Channel + "\n" +
		"2. Choose quality level (Basic/Premium/Elite/Pro)\n" +
		"3. Send me any image\n" +
		"4. Wait for processing\n" +
		"5. Download your upscaled image!\n\n" +
		"Commands:\n" +
		"/start - Choose quality\n" +
		"/help - Show this help message"
}

// TierKeyboard lists one button per tier.
func TierKeyboard() Keyboard {
	kb := make(Keyboard, 0, len(tier.All))
	for _, t := range tier.All {
		kb = append(kb, []Button{{Text: t.Label(), Data: t.CallbackData()}})
	}
	return kb
}

func selectedText(t tier.Tier) string {
	return fmt.Sprintf("✅ Selected: %s\n\n📸 Now send me an image to upscale!", strings.ToUpper(t.String()))
}

func progressText(attempt, max int) string {
	return fmt.Sprintf("⌛ Still processing... (%d/%d)", attempt, max)
}

func failureText(err error) string {
	return "❌ Failed to process image: " + userReason(err)
}

func (o *Orchestrator) resultFileName(t tier.Tier, ext string) string {
	return fmt.Sprintf("%s_%s.%s", o.brand(), t.String(), ext)
}

func resultCaption(t tier.Tier, ext string) string {
	return fmt.Sprintf("✅ Upscaled with %s quality!\n\nFormat: %s\n\n🔄 Send another image or /start to change quality.",
		strings.ToUpper(t.String()), strings.ToUpper(ext))
}

func (o *Orchestrator) brand() string {
	if o.Brand == "" {
		return "WallSwipe"
	}
	return o.Brand
}
