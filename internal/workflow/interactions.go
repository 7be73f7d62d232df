package workflow

import (
	"context"

	"upscale-bot/internal/shared/telemetry"
	"upscale-bot/internal/tier"
	"upscale-bot/internal/usage"
)

// OnSessionReset handles /start. It records a start event, then shows either
// the join prompt or the tier keyboard. A stored tier is kept.
func (o *Orchestrator) OnSessionReset(ctx context.Context, u User) (state State) {
	defer o.guard(&state, "session_reset", u)

	o.record(u.ID, usage.KindStart, tier.Unset)
	if !o.Gate.IsMember(ctx, u.ID) {
		o.sendJoinPrompt(ctx, u.ChatID)
		return StateAwaitingMembership
	}
	o.send(ctx, u.ChatID, o.welcome(), TierKeyboard())
	o.disclose(ctx, u)
	return StateAwaitingTierSelection
}

// OnTierChosen stores the tier carried by a "scale_*" button press.
func (o *Orchestrator) OnTierChosen(ctx context.Context, u User, in Interaction, data string) (state State) {
	defer o.guard(&state, "tier_chosen", u)

	t, err := tier.Parse(data)
	if err != nil {
		o.answer(ctx, in.ID, "⚠️ Unknown quality level", true)
		return StateAwaitingTierSelection
	}
	if !o.Gate.IsMember(ctx, u.ID) {
		o.answer(ctx, in.ID, msgStillMember, true)
		text, kb := o.joinPrompt()
		o.edit(ctx, in.Message, text, kb)
		return StateAwaitingMembership
	}
	if err := o.Sessions.SetTier(ctx, sessionKey(u.ID), t); err != nil {
		telemetry.Error("workflow.set_tier_failed", map[string]any{
			"user_id": u.ID,
			"tier":    t.String(),
			"error":   telemetry.Err(err),
		})
		o.answer(ctx, in.ID, "⚠️ Could not save your choice, please try again.", true)
		return StateAwaitingTierSelection
	}
	o.answer(ctx, in.ID, "", false)
	o.edit(ctx, in.Message, selectedText(t), nil)
	o.record(u.ID, usage.KindTierChange, t)
	return StateAwaitingImage
}

// OnMembershipRecheckRequested handles the "Check Again" button.
func (o *Orchestrator) OnMembershipRecheckRequested(ctx context.Context, u User, in Interaction) (state State) {
	defer o.guard(&state, "membership_recheck", u)

	if !o.Gate.IsMember(ctx, u.ID) {
		o.answer(ctx, in.ID, msgStillMember, true)
		return StateAwaitingMembership
	}
	o.answer(ctx, in.ID, "", false)
	o.edit(ctx, in.Message, msgMemberAgain, TierKeyboard())
	return StateAwaitingTierSelection
}

// OnHelp answers /help. Non-members get the join prompt instead.
func (o *Orchestrator) OnHelp(ctx context.Context, u User) (state State) {
	defer o.guard(&state, "help", u)

	if !o.Gate.IsMember(ctx, u.ID) {
		o.sendJoinPrompt(ctx, u.ChatID)
		return StateAwaitingMembership
	}
	o.send(ctx, u.ChatID, o.help(), nil)
	return o.idleState(ctx, u)
}

// OnText answers free text with a hint.
func (o *Orchestrator) OnText(ctx context.Context, u User) (state State) {
	defer o.guard(&state, "text", u)

	if !o.Gate.IsMember(ctx, u.ID) {
		o.sendJoinPrompt(ctx, u.ChatID)
		return StateAwaitingMembership
	}
	o.send(ctx, u.ChatID, msgSendImage, nil)
	return o.idleState(ctx, u)
}

// OnNonImageDocument rejects documents that are not images.
func (o *Orchestrator) OnNonImageDocument(ctx context.Context, u User) (state State) {
	defer o.guard(&state, "non_image_document", u)

	if !o.Gate.IsMember(ctx, u.ID) {
		o.sendJoinPrompt(ctx, u.ChatID)
		return StateAwaitingMembership
	}
	o.send(ctx, u.ChatID, msgNotAnImage, nil)
	return o.idleState(ctx, u)
}

func (o *Orchestrator) idleState(ctx context.Context, u User) State {
	if _, ok, err := o.Sessions.GetTier(ctx, sessionKey(u.ID)); err == nil && ok {
		return StateAwaitingImage
	}
	return StateAwaitingTierSelection
}
