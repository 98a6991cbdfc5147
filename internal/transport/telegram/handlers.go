package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	tele "gopkg.in/telebot.v4"

	"catbot/internal/pet"
	"catbot/internal/render"
	"catbot/internal/session"
	"catbot/internal/timespec"
	"catbot/internal/walk"
	"catbot/pkg/logx"
)

const (
	msgNoCat     = "You don't have a cat yet. Send /start to adopt one 🐱"
	msgPickColor = "Pick a color with the buttons above 🎨"
	msgBadTime   = "I couldn't read that time. Use HH:MM, e.g. 16:30 (or \"cancel\")."
	msgNoChanges = "Okay, no changes 👌"

	maxNameLength = 32
)

// notifier is the outbound-delivery surface the handlers need; implemented by
// internal/notify.Service.
type notifier interface {
	Send(ctx context.Context, userID int64, text string)
	SendPhoto(ctx context.Context, userID int64, path, caption string)
}

// Handlers routes inbound updates through the session state machine into the
// pet registry and walk scheduler.
type Handlers struct {
	registry *pet.Registry
	sessions *session.Manager
	walks    *walk.Service
	notifier notifier
	renderer render.CardRenderer // optional; text card when nil
	window   timespec.Window
	cooldown time.Duration
	codeTTL  time.Duration
	log      logx.Logger
	now      func() time.Time

	// ctx is the app lifetime context, set in Attach. telebot handlers get no
	// context of their own.
	ctx context.Context
}

// HandlerDeps carries the collaborators for NewHandlers.
type HandlerDeps struct {
	Registry *pet.Registry
	Sessions *session.Manager
	Walks    *walk.Service
	Notifier notifier
	Renderer render.CardRenderer
	Window   timespec.Window
	Cooldown time.Duration
	CodeTTL  time.Duration
	Log      logx.Logger
}

func NewHandlers(d HandlerDeps) *Handlers {
	log := d.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	if d.Cooldown <= 0 {
		d.Cooldown = 24 * time.Hour
	}
	if d.CodeTTL <= 0 {
		d.CodeTTL = 24 * time.Hour
	}
	return &Handlers{
		registry: d.Registry,
		sessions: d.Sessions,
		walks:    d.Walks,
		notifier: d.Notifier,
		renderer: d.Renderer,
		window:   d.Window,
		cooldown: d.Cooldown,
		codeTTL:  d.CodeTTL,
		log:      log,
		now:      time.Now,
	}
}

// Attach registers every route on the bot.
func (h *Handlers) Attach(ctx context.Context, b *tele.Bot) {
	h.ctx = ctx
	b.Handle("/start", h.onStart)
	b.Handle("/connect", h.onConnect)
	b.Handle("/message", h.onMessage)
	b.Handle(tele.OnText, h.onText)
	b.Handle(tele.OnPhoto, h.onPhoto)
	b.Handle(&btnColor, h.onColor)
	b.Handle(&btnAction, h.onAction)
	b.Handle(&btnWalk, h.onWalk)
	b.Handle(&btnCancelMsg, h.onCancelMessage)
}

func (h *Handlers) onStart(c tele.Context) error {
	uid := c.Sender().ID
	if cat, err := h.registry.Resolve(uid); err == nil {
		h.sessions.Clear(uid)
		if err := c.Send("Welcome back! 🐱", mainKeyboard()); err != nil {
			return err
		}
		return h.sendStatus(c, cat)
	}
	h.sessions.Set(uid, session.State{Kind: session.AwaitingName})
	return c.Send("Hi! Let's adopt a cat. What should we name it?")
}

func (h *Handlers) onConnect(c tele.Context) error {
	uid := c.Sender().ID
	if h.registry.HasCat(uid) {
		return c.Send("You already have a cat of your own 🐱")
	}
	if cat, err := h.registry.Resolve(uid); err == nil {
		return c.Send(fmt.Sprintf("You are already connected to %s.", cat.Name))
	}
	h.sessions.Set(uid, session.State{Kind: session.AwaitingCode})
	return c.Send("Enter the connection code:")
}

func (h *Handlers) onMessage(c tele.Context) error {
	uid := c.Sender().ID
	cat, err := h.registry.Resolve(uid)
	if err != nil {
		return c.Send(msgNoCat)
	}
	if len(cat.Participants()) < 2 {
		return c.Send("Nobody is connected to your cat yet. Share the code from /connect first.")
	}
	if wait := h.registry.MessageWait(cat.OwnerID, uid, h.cooldown); wait > 0 {
		return c.Send(fmt.Sprintf("You can send the next message in %s ⏳", formatWait(wait)))
	}
	h.sessions.Set(uid, session.State{Kind: session.AwaitingMessage, OwnerID: cat.OwnerID})
	return c.Send("Type the message (or attach a photo):", cancelMessageKeyboard())
}

func (h *Handlers) onText(c tele.Context) error {
	uid := c.Sender().ID
	text := strings.TrimSpace(c.Text())

	switch st := h.sessions.Get(uid); st.Kind {
	case session.AwaitingName:
		return h.handleName(c, uid, text)
	case session.AwaitingColor:
		return c.Send(msgPickColor)
	case session.AwaitingCode:
		return h.handleCode(c, uid, text)
	case session.AwaitingWalkTime:
		return h.handleWalkTimeInput(c, uid, text)
	case session.AwaitingMessage:
		return h.relayText(c, uid, st, text)
	}

	switch text {
	case menuMyCat:
		cat, err := h.registry.Resolve(uid)
		if err != nil {
			return c.Send(msgNoCat)
		}
		return h.sendStatus(c, cat)
	case menuWalk:
		return h.walkMenu(c, uid)
	case menuMessage:
		return h.onMessage(c)
	}
	return nil
}

func (h *Handlers) handleName(c tele.Context, uid int64, name string) error {
	if name == "" || strings.HasPrefix(name, "/") || utf8.RuneCountInString(name) > maxNameLength {
		return c.Send("Give me a plain name up to 32 characters.")
	}
	h.sessions.Set(uid, session.State{Kind: session.AwaitingColor, DraftName: name})
	return c.Send(fmt.Sprintf("%s it is! What color is the cat?", name), colorKeyboard())
}

func (h *Handlers) handleCode(c tele.Context, uid int64, text string) error {
	code := strings.ToUpper(strings.TrimSpace(text))
	cat, added, err := h.registry.Redeem(h.ctx, code, uid)
	switch {
	case errors.Is(err, pet.ErrCodeExpired):
		return c.Send("That code has expired. Ask for a fresh one.")
	case errors.Is(err, pet.ErrHasCat):
		h.sessions.Clear(uid)
		return c.Send("You already have a cat of your own 🐱")
	case err != nil:
		return c.Send("I don't know that code. Check it and try again (or send /start to adopt your own cat).")
	}

	h.sessions.Clear(uid)
	if err := c.Send(fmt.Sprintf("You're connected to %s! 🐱", cat.Name), mainKeyboard()); err != nil {
		return err
	}
	if added {
		h.notifier.Send(h.ctx, cat.OwnerID, fmt.Sprintf("%s connected to %s 🤝", senderName(c), cat.Name))
		h.rearmWalk(cat)
	}
	return h.sendStatus(c, cat)
}

// rearmWalk re-registers walk reminders after the participant set changed, so
// the new user gets the remaining reminders of today's walk too.
func (h *Handlers) rearmWalk(cat pet.Cat) {
	if cat.WalkTime == "" {
		return
	}
	res, err := timespec.Parse(cat.WalkTime)
	if err != nil || res.Cancelled {
		return
	}
	if _, err := h.walks.Set(h.ctx, cat.OwnerID, res.Hour, res.Minute); err != nil {
		h.log.Warn("walk rearm failed", logx.Int64("owner", cat.OwnerID), logx.Err(err))
	}
}

func (h *Handlers) handleWalkTimeInput(c tele.Context, uid int64, text string) error {
	res, err := timespec.Parse(text)
	if err != nil {
		return c.Send(msgBadTime, cancelSetupKeyboard())
	}
	if res.Cancelled {
		h.sessions.Clear(uid)
		return c.Send(msgNoChanges, mainKeyboard())
	}
	if err := h.window.Check(res); err != nil {
		return c.Send(fmt.Sprintf("Pick a time between %02d:00 and %02d:00.", h.window.From, h.window.To), cancelSetupKeyboard())
	}
	return h.applyWalkTime(c, uid, res)
}

func (h *Handlers) applyWalkTime(c tele.Context, uid int64, res timespec.Result) error {
	cat, err := h.registry.Resolve(uid)
	if err != nil {
		h.sessions.Clear(uid)
		return c.Send(msgNoCat)
	}
	if _, err := h.walks.Set(h.ctx, cat.OwnerID, res.Hour, res.Minute); err != nil {
		h.log.Error("walk set failed", logx.Int64("owner", cat.OwnerID), logx.Err(err))
		return c.Send("Something went wrong, try again.")
	}
	h.sessions.Clear(uid)
	if uid != cat.OwnerID {
		h.notifier.Send(h.ctx, cat.OwnerID, fmt.Sprintf("%s set the walk for %s 🚶", senderName(c), res.HHMM()))
	}
	return c.Send(fmt.Sprintf("Walk set for %s 🚶\nI'll remind you 60, 30 and 10 minutes before, and at the time itself.", res.HHMM()), mainKeyboard())
}

func (h *Handlers) relayText(c tele.Context, uid int64, st session.State, text string) error {
	if text == "" {
		return c.Send("Type the message (or attach a photo):", cancelMessageKeyboard())
	}
	cat, err := h.registry.Resolve(uid)
	if err != nil {
		h.sessions.Clear(uid)
		return c.Send(msgNoCat)
	}
	msg := fmt.Sprintf("💌 Message from %s:\n%s", senderName(c), text)
	for _, id := range cat.Participants() {
		if id == uid {
			continue
		}
		h.notifier.Send(h.ctx, id, msg)
	}
	h.registry.MarkMessage(h.ctx, st.OwnerID, uid)
	h.sessions.Clear(uid)
	return c.Send("Delivered 💌", mainKeyboard())
}

func (h *Handlers) onPhoto(c tele.Context) error {
	uid := c.Sender().ID
	st := h.sessions.Get(uid)
	if st.Kind != session.AwaitingMessage {
		return nil
	}
	m := c.Message()
	if m == nil || m.Photo == nil {
		return nil
	}
	cat, err := h.registry.Resolve(uid)
	if err != nil {
		h.sessions.Clear(uid)
		return c.Send(msgNoCat)
	}

	caption := fmt.Sprintf("💌 Photo from %s", senderName(c))
	if m.Caption != "" {
		caption += ":\n" + m.Caption
	}
	// Relay by file ID; the photo never touches our disk.
	for _, id := range cat.Participants() {
		if id == uid {
			continue
		}
		photo := &tele.Photo{File: m.Photo.File, Caption: caption}
		if _, err := c.Bot().Send(tele.ChatID(id), photo); err != nil {
			h.log.Warn("photo relay failed", logx.Int64("user", id), logx.Err(err))
		}
	}
	h.registry.MarkMessage(h.ctx, st.OwnerID, uid)
	h.sessions.Clear(uid)
	return c.Send("Delivered 💌", mainKeyboard())
}

func (h *Handlers) onColor(c tele.Context) error {
	uid := c.Sender().ID
	st := h.sessions.Get(uid)
	if st.Kind != session.AwaitingColor {
		return c.Respond(&tele.CallbackResponse{})
	}
	color := pet.Color(c.Data())
	if !color.Valid() {
		return c.Respond(&tele.CallbackResponse{Text: "Pick one of the listed colors"})
	}
	cat, code, err := h.registry.Create(h.ctx, uid, st.DraftName, color)
	if err != nil {
		h.sessions.Clear(uid)
		if errors.Is(err, pet.ErrHasCat) {
			return c.Send("You already have a cat 🐱")
		}
		h.log.Error("create cat failed", logx.Int64("owner", uid), logx.Err(err))
		return c.Send("Something went wrong, try again with /start.")
	}
	h.sessions.Clear(uid)
	_ = c.Respond(&tele.CallbackResponse{})
	_ = c.Edit(fmt.Sprintf("Meet %s, your %s cat! 🐱", cat.Name, cat.Color))
	if err := c.Send(fmt.Sprintf("Share this code so a friend can connect: %s\nIt expires in %s.", code, formatWait(h.codeTTL)), mainKeyboard()); err != nil {
		return err
	}
	return h.sendStatus(c, cat)
}

func (h *Handlers) onAction(c tele.Context) error {
	uid := c.Sender().ID
	act := pet.Action(c.Data())

	if act == pet.ActionStatus {
		cat, err := h.registry.Resolve(uid)
		if err != nil {
			return c.Respond(&tele.CallbackResponse{Text: msgNoCat})
		}
		_ = c.Respond(&tele.CallbackResponse{})
		return h.sendStatus(c, cat)
	}

	cat, out, err := h.registry.Apply(h.ctx, uid, act)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: msgNoCat})
	}
	switch out {
	case pet.OutcomeNotHungry:
		return c.Respond(&tele.CallbackResponse{Text: cat.Name + " is not hungry 🍽"})
	case pet.OutcomeTooTired:
		return c.Respond(&tele.CallbackResponse{Text: cat.Name + " is too tired to play 💤"})
	case pet.OutcomeNotSleepy:
		return c.Respond(&tele.CallbackResponse{Text: cat.Name + " is not sleepy ⚡"})
	case pet.OutcomeNoChange:
		return c.Respond(&tele.CallbackResponse{})
	}

	_ = c.Respond(&tele.CallbackResponse{Text: actionToast(act, cat.Name)})
	if uid != cat.OwnerID {
		h.notifier.Send(h.ctx, cat.OwnerID, ownerNotice(act, senderName(c), cat.Name))
	}
	return h.sendStatus(c, cat)
}

func (h *Handlers) onWalk(c tele.Context) error {
	uid := c.Sender().ID
	switch data := c.Data(); data {
	case walkCancelSetup:
		h.sessions.Clear(uid)
		_ = c.Respond(&tele.CallbackResponse{})
		return c.Edit(msgNoChanges)
	case walkDeleteTime:
		cat, err := h.registry.Resolve(uid)
		if err != nil {
			return c.Respond(&tele.CallbackResponse{Text: msgNoCat})
		}
		had, err := h.walks.Clear(h.ctx, cat.OwnerID)
		if err != nil {
			h.log.Error("walk clear failed", logx.Int64("owner", cat.OwnerID), logx.Err(err))
			return c.Respond(&tele.CallbackResponse{Text: "Something went wrong, try again."})
		}
		h.sessions.Clear(uid)
		_ = c.Respond(&tele.CallbackResponse{})
		if !had {
			return c.Edit("No walk time was set.")
		}
		if uid != cat.OwnerID {
			h.notifier.Send(h.ctx, cat.OwnerID, fmt.Sprintf("%s deleted the walk time 🗑", senderName(c)))
		}
		return c.Edit("Walk time deleted 🗑")
	default: // quick "HH:MM" pick
		res, err := timespec.Parse(data)
		if err != nil || res.Cancelled {
			return c.Respond(&tele.CallbackResponse{Text: "Unknown option"})
		}
		if err := h.window.Check(res); err != nil {
			return c.Respond(&tele.CallbackResponse{Text: "That time is outside walk hours"})
		}
		_ = c.Respond(&tele.CallbackResponse{})
		return h.applyWalkTime(c, uid, res)
	}
}

func (h *Handlers) walkMenu(c tele.Context, uid int64) error {
	cat, err := h.registry.Resolve(uid)
	if err != nil {
		return c.Send(msgNoCat)
	}
	h.sessions.Set(uid, session.State{Kind: session.AwaitingWalkTime})
	if cat.WalkTime != "" {
		return c.Send(
			fmt.Sprintf("Walk is set for %s.\nType a new time (HH:MM) or delete it.", cat.WalkTime),
			walkKeyboard(true))
	}
	return c.Send("When should we walk? Pick a time or type your own (HH:MM).", walkKeyboard(false))
}

func (h *Handlers) onCancelMessage(c tele.Context) error {
	h.sessions.Clear(c.Sender().ID)
	_ = c.Respond(&tele.CallbackResponse{})
	return c.Edit("Okay, no message 👌")
}

// sendStatus delivers the status card: rendered image when a renderer is
// configured, plain text card otherwise.
func (h *Handlers) sendStatus(c tele.Context, cat pet.Cat) error {
	card := render.TextCard(cat, h.now())
	if h.renderer != nil {
		path, err := h.renderer.Render(cat)
		if err == nil {
			photo := &tele.Photo{File: tele.FromDisk(path), Caption: card}
			return c.Send(photo, actionsKeyboard())
		}
		h.log.Warn("card render failed", logx.Int64("owner", cat.OwnerID), logx.Err(err))
	}
	return c.Send(card, actionsKeyboard())
}

func senderName(c tele.Context) string {
	if u := c.Sender(); u != nil && u.FirstName != "" {
		return u.FirstName
	}
	return "Your human"
}

func actionToast(a pet.Action, name string) string {
	switch a {
	case pet.ActionFeed:
		return name + " enjoyed the meal 🍽"
	case pet.ActionPlay:
		return name + " had fun playing 🎾"
	case pet.ActionSleep:
		return name + " is napping 💤"
	}
	return ""
}

func ownerNotice(a pet.Action, who, name string) string {
	switch a {
	case pet.ActionFeed:
		return fmt.Sprintf("%s fed %s 🍽", who, name)
	case pet.ActionPlay:
		return fmt.Sprintf("%s played with %s 🎾", who, name)
	case pet.ActionSleep:
		return fmt.Sprintf("%s put %s to sleep 💤", who, name)
	}
	return ""
}

// formatWait renders a duration as "3h 20m" / "45m" for user-facing text.
func formatWait(d time.Duration) string {
	d = d.Round(time.Minute)
	hours := int(d / time.Hour)
	mins := int(d/time.Minute) % 60
	if hours > 0 {
		if mins == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	if mins <= 0 {
		return "a minute"
	}
	return fmt.Sprintf("%dm", mins)
}
