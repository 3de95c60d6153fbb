package dialog

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"salonvox/internal/config"
	"salonvox/internal/domain"
	"salonvox/internal/events"
	"salonvox/internal/metrics"
	"salonvox/internal/models"

	"github.com/rs/zerolog"
)

// Engine drives the booking dialog across stateless webhook turns. Each turn
// loads the call's session, applies one transition, and persists the result;
// a per-call lock makes the whole turn the unit of atomicity.
type Engine struct {
	sessions   domain.SessionRepository
	pending    domain.PendingRepository
	scheduler  domain.Scheduler
	notifier   domain.Notifier
	classifier domain.IntentClassifier
	eventBus   domain.EventPublisher
	cfg        *config.Config
	logger     *zerolog.Logger
	now        func() time.Time

	locks sync.Map // callSID -> *sync.Mutex
}

// TurnInput is one gateway event: a call start, recognized speech, or digits.
type TurnInput struct {
	CallSID     string
	From        string
	SpeechText  string
	Digits      string
	CallStarted bool
}

func NewEngine(
	sessions domain.SessionRepository,
	pending domain.PendingRepository,
	scheduler domain.Scheduler,
	notifier domain.Notifier,
	classifier domain.IntentClassifier,
	eventBus domain.EventPublisher,
	cfg *config.Config,
	logger *zerolog.Logger,
) *Engine {
	return &Engine{
		sessions:   sessions,
		pending:    pending,
		scheduler:  scheduler,
		notifier:   notifier,
		classifier: classifier,
		eventBus:   eventBus,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// HandleTurn processes one gateway event and returns the voice-control
// document for it. Adapter failures never surface to the gateway: they
// become an unconditional transfer to the fallback number and the session is
// left exactly as the turn found it.
func (e *Engine) HandleTurn(ctx context.Context, in TurnInput) *VoiceResponse {
	mu := e.lockFor(in.CallSID)
	mu.Lock()
	defer mu.Unlock()

	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		l = e.logger
	}

	session, err := e.sessions.Get(ctx, in.CallSID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		l.Error().Err(err).Str("call_sid", in.CallSID).Msg("failed to load call session")
		return e.transferResponse()
	}
	if session == nil || errors.Is(err, domain.ErrNotFound) {
		session = models.NewCallSession(in.CallSID, e.now())
	}

	metrics.IncTurn(session.Step)

	if in.CallStarted {
		session.ResetToMenu(e.now())
		if err := e.sessions.Put(ctx, session); err != nil {
			l.Error().Err(err).Str("call_sid", in.CallSID).Msg("failed to store call session")
			return e.transferResponse()
		}
		_ = e.eventBus.PublishJSON(events.EventCallStarted, events.CallEventPayload{CallSID: in.CallSID, From: in.From})
		return e.menuGreeting()
	}

	// Global override: asking for a human wins over every state, and the
	// session must not be touched.
	if in.SpeechText != "" && WantsHuman(in.SpeechText) {
		l.Info().Str("call_sid", in.CallSID).Str("step", session.Step).Msg("human handoff requested")
		_ = e.eventBus.PublishJSON(events.EventHumanTransfer, events.CallEventPayload{CallSID: in.CallSID, Step: session.Step})
		return e.transferResponse()
	}

	resp, err := e.step(ctx, session, in)
	if err != nil {
		l.Error().Err(err).
			Str("call_sid", in.CallSID).
			Str("step", session.Step).
			Msg("dialog turn failed, transferring to human")
		return e.transferResponse()
	}

	if err := e.sessions.Put(ctx, session); err != nil {
		l.Error().Err(err).Str("call_sid", in.CallSID).Msg("failed to store call session")
		return e.transferResponse()
	}

	if resp.HangUp || resp.Dial != "" {
		e.locks.Delete(in.CallSID)
	}
	return resp
}

func (e *Engine) step(ctx context.Context, session *models.CallSession, in TurnInput) (*VoiceResponse, error) {
	switch session.Step {
	case models.StepMenu:
		return e.handleMenu(ctx, session, in.SpeechText)
	case models.StepChooseService:
		return e.handleChooseService(ctx, session, in.SpeechText)
	case models.StepChooseSlot:
		return e.handleChooseSlot(session, digitInput(in)), nil
	case models.StepCollectName:
		return e.handleCollectName(session, in.SpeechText), nil
	case models.StepCollectPhone:
		return e.handleCollectPhone(session, in), nil
	case models.StepConfirmPhone:
		return e.handleConfirmPhone(ctx, session, in)
	default:
		// Unknown step means a version skew or a corrupted entry; start over.
		session.ResetToMenu(e.now())
		return e.menuGreeting(), nil
	}
}

func (e *Engine) handleMenu(ctx context.Context, session *models.CallSession, text string) (*VoiceResponse, error) {
	// A caller naming the service outright skips the intermediate prompt.
	if MatchService(text, e.cfg.Services) != models.ServiceNone {
		session.Step = models.StepChooseService
		return e.handleChooseService(ctx, session, text)
	}

	switch MatchMenuIntent(text) {
	case IntentPrices:
		return askSpeech(e.cfg.Salon.PriceInfo, "Que puis-je faire d'autre pour vous ?"), nil
	case IntentAddress:
		return askSpeech(e.cfg.Salon.Address, "Que puis-je faire d'autre pour vous ?"), nil
	case IntentHours:
		return askSpeech(e.cfg.Salon.Hours, "Que puis-je faire d'autre pour vous ?"), nil
	case IntentBooking:
		session.Step = models.StepChooseService
		return askSpeech("Avec plaisir. Souhaitez-vous une coupe homme, femme, ou non binaire ?"), nil
	default:
		return e.menuGreeting(), nil
	}
}

func (e *Engine) handleChooseService(ctx context.Context, session *models.CallSession, text string) (*VoiceResponse, error) {
	kind := MatchService(text, e.cfg.Services)
	if kind == models.ServiceNone {
		var err error
		kind, err = e.classifier.ClassifyService(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("classify service: %w", err)
		}
	}
	if kind == models.ServiceNone {
		return askSpeech("Désolé, je n'ai pas compris. Souhaitez-vous une coupe homme, femme, ou non binaire ?"), nil
	}

	svc := e.cfg.ServiceByKind(kind)
	if svc == nil || svc.SchedulingHandle == "" {
		// Announced but not bookable by phone; the call ends here.
		session.ResetToMenu(e.now())
		metrics.IncHumanTransfer()
		return transferTo(e.cfg.Dialog.FallbackNumber,
			"Ce service ne peut pas être réservé par téléphone, je vous mets en relation avec un conseiller."), nil
	}

	now := e.now()
	slots, err := e.scheduler.ListAvailableStartTimes(ctx, svc.SchedulingHandle,
		now.Add(models.SlotMinNotice), now.Add(models.SlotLookahead))
	if err != nil {
		return nil, fmt.Errorf("list available start times: %w", err)
	}
	if len(slots) == 0 {
		return askSpeech(
			"Désolé, aucun créneau n'est disponible pour le moment.",
			"Vous pouvez rappeler plus tard, ou dire conseiller pour parler à quelqu'un."), nil
	}
	if len(slots) > models.MaxSlots {
		slots = slots[:models.MaxSlots]
	}

	session.Data.Service = kind
	session.Data.SchedulingHandle = svc.SchedulingHandle
	session.Data.Slots = slots
	session.Step = models.StepChooseSlot

	say := []string{fmt.Sprintf("Voici les prochains créneaux pour %s.", svc.Label)}
	for i, slot := range slots {
		say = append(say, fmt.Sprintf("Option %d : %s.", i+1, speakTime(slot)))
	}
	say = append(say, "Tapez le numéro de l'option choisie.")
	return askDigits(1, say...), nil
}

func (e *Engine) handleChooseSlot(session *models.CallSession, digits string) *VoiceResponse {
	idx := -1
	if len(digits) == 1 && digits[0] >= '1' && digits[0] <= '9' {
		idx = int(digits[0] - '0')
	}
	if idx < 1 || idx > len(session.Data.Slots) || idx > models.MaxSlots {
		return askDigits(1, "Choix non reconnu. Tapez 1, 2 ou 3 pour choisir un créneau.")
	}

	session.Data.SelectedSlot = session.Data.Slots[idx-1]
	session.Step = models.StepCollectName
	return askSpeech("Très bien. Quel est votre nom et prénom ?")
}

func (e *Engine) handleCollectName(session *models.CallSession, text string) *VoiceResponse {
	name, err := CanonicalName(text)
	if err != nil {
		return askSpeech("J'ai besoin de votre nom et prénom. Pouvez-vous répéter ?")
	}

	session.Data.Name = name
	session.Step = models.StepCollectPhone
	return askSpeech("Merci. Quel est votre numéro de téléphone portable, chiffre par chiffre ?")
}

func (e *Engine) handleCollectPhone(session *models.CallSession, in TurnInput) *VoiceResponse {
	phone, err := CanonicalPhone(in.SpeechText, e.cfg.Dialog.CountryCode)
	if err == nil {
		session.Data.Phone = phone
		session.Step = models.StepConfirmPhone
		return e.confirmPrompt(phone)
	}

	session.Data.PhoneAttempts++
	if session.Data.PhoneAttempts < models.MaxPhoneAttempts {
		return askSpeech("Je n'ai pas reconnu ce numéro. Pouvez-vous le répéter chiffre par chiffre ?")
	}

	// Three misses: trust the line the caller is on.
	fallback, err := CanonicalPhone(in.From, e.cfg.Dialog.CountryCode)
	if err != nil {
		fallback = in.From
	}
	session.Data.Phone = fallback
	session.Step = models.StepConfirmPhone
	return e.confirmPrompt(fallback)
}

func (e *Engine) confirmPrompt(phone string) *VoiceResponse {
	return askDigits(1,
		fmt.Sprintf("J'ai noté le %s.", spaceDigits(phone)),
		"Tapez 1 pour confirmer, ou 2 pour corriger le numéro.")
}

func (e *Engine) handleConfirmPhone(ctx context.Context, session *models.CallSession, in TurnInput) (*VoiceResponse, error) {
	if digitInput(in) == "2" {
		session.Data.Phone = ""
		session.Data.PhoneAttempts = 0
		session.Step = models.StepCollectPhone
		return askSpeech("D'accord. Quel est votre numéro de téléphone, chiffre par chiffre ?"), nil
	}

	// Anything else confirms; the closing step must not trap the caller.
	token, err := mintToken()
	if err != nil {
		return nil, fmt.Errorf("mint confirmation token: %w", err)
	}

	now := e.now()
	pending := &models.PendingConfirmation{
		ExpiresAt: now.Add(models.PendingTTL),
		Payload: models.ConfirmationPayload{
			Phone:            session.Data.Phone,
			Name:             session.Data.Name,
			Service:          session.Data.Service,
			SchedulingHandle: session.Data.SchedulingHandle,
			StartTime:        session.Data.SelectedSlot,
		},
	}
	if err := e.pending.Put(ctx, token, pending); err != nil {
		return nil, fmt.Errorf("store pending confirmation: %w", err)
	}

	link := strings.TrimRight(e.cfg.Dialog.BaseURL, "/") + "/confirm/" + token
	body := fmt.Sprintf("%s : confirmez votre rendez-vous du %s en suivant ce lien (valable 20 minutes) : %s",
		e.cfg.Salon.Name, speakTime(pending.Payload.StartTime), link)
	if err := e.notifier.SendText(ctx, pending.Payload.Phone, body); err != nil {
		return nil, fmt.Errorf("send confirmation link: %w", err)
	}

	_ = e.eventBus.PublishJSON(events.EventHandoffSent, events.BookingEventPayload{
		Phone:     pending.Payload.Phone,
		Name:      pending.Payload.Name,
		Service:   string(pending.Payload.Service),
		StartTime: pending.Payload.StartTime,
	})

	// The call ends here; the session goes back to the menu for a next call
	// reusing the same SID.
	session.ResetToMenu(now)
	return hangUp(
		"Parfait. Je viens de vous envoyer un texto avec un lien de confirmation.",
		"Ouvrez-le dans les 20 minutes pour finaliser votre rendez-vous. À bientôt !"), nil
}

func (e *Engine) menuGreeting() *VoiceResponse {
	return askSpeech(fmt.Sprintf(
		"Bienvenue chez %s. Vous pouvez demander nos tarifs, notre adresse, nos horaires, ou prendre un rendez-vous.",
		e.cfg.Salon.Name))
}

func (e *Engine) transferResponse() *VoiceResponse {
	metrics.IncHumanTransfer()
	return transferTo(e.cfg.Dialog.FallbackNumber, "Je vous mets en relation avec un conseiller, un instant.")
}

func (e *Engine) lockFor(callSID string) *sync.Mutex {
	val, _ := e.locks.LoadOrStore(callSID, &sync.Mutex{})
	return val.(*sync.Mutex)
}

// digitInput prefers keypad digits and falls back to trimmed speech, since
// some gateways deliver a spoken digit as speech text.
func digitInput(in TurnInput) string {
	if in.Digits != "" {
		return strings.TrimSpace(in.Digits)
	}
	return strings.TrimSpace(in.SpeechText)
}

// mintToken returns a URL-safe token with 192 bits of entropy.
func mintToken() (string, error) {
	buf := make([]byte, models.PendingTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
