package upstream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/academic-insights/internal/models"
)

const dateLayout = "2006-01-02"

// decimal accepts DRF decimals, which serialise as strings, as well as plain numbers.
// A JSON null leaves the value untouched; an empty string is rejected.
type decimal float64

func (d *decimal) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	raw := strings.Trim(string(data), `"`)
	if raw == "" {
		return errors.New("empty decimal")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid decimal %q: %w", raw, err)
	}
	*d = decimal(v)
	return nil
}

type noteWire struct {
	ID             models.FlexibleID `json:"id_note"`
	Student        models.FlexibleID `json:"student"`
	Matiere        models.FlexibleID `json:"matiere"`
	MatiereNom     string            `json:"matiere_nom"`
	TypeEvaluation string            `json:"type_evaluation"`
	ValeurNote     *decimal          `json:"valeur_note"`
	DateNote       string            `json:"date_note"`
	Valide         bool              `json:"valide"`
}

type noteCreateWire struct {
	Student        string  `json:"student"`
	Matiere        string  `json:"matiere"`
	TypeEvaluation string  `json:"type_evaluation,omitempty"`
	ValeurNote     float64 `json:"valeur_note"`
	DateNote       string  `json:"date_note"`
}

type matiereWire struct {
	ID          models.FlexibleID `json:"id_matiere"`
	Nom         string            `json:"nom_matière"`
	NomAscii    string            `json:"nom_matiere"`
	Coefficient decimal           `json:"coefficient"`
}

type etudiantWire struct {
	ID     models.FlexibleID `json:"id_student"`
	Nom    string            `json:"nom"`
	Prenom string            `json:"prenom"`
	Classe models.FlexibleID `json:"classe"`
}

type exerciceWire struct {
	ID               models.FlexibleID `json:"id_exercice"`
	Subject          models.FlexibleID `json:"subject"`
	SubjectNom       string            `json:"subject_nom"`
	Titre            string            `json:"titre"`
	NiveauDifficulte int               `json:"niveau_difficulte"`
}

type notificationWire struct {
	ID           models.FlexibleID `json:"id"`
	Type         string            `json:"type"`
	Titre        string            `json:"titre"`
	Message      string            `json:"message"`
	EstLu        bool              `json:"est_lu"`
	DateCreation string            `json:"date_creation"`
	DateLecture  *string           `json:"date_lecture"`
}

type feedbackWire struct {
	SuggestionID string `json:"suggestion_id"`
	EstUtile     bool   `json:"est_utile"`
}

var evaluationFromWire = map[string]models.EvaluationType{
	"devoir": models.EvaluationHomework,
	"examen": models.EvaluationExam,
	"tp":     models.EvaluationLab,
}

var evaluationToWire = map[string]string{
	string(models.EvaluationHomework): "devoir",
	string(models.EvaluationExam):     "examen",
	string(models.EvaluationLab):      "tp",
}

var notificationTypeFromWire = map[string]models.NotificationType{
	"suggestion": models.NotificationSuggestion,
	"validation": models.NotificationValidation,
	"alerte":     models.NotificationAlert,
	"rappel":     models.NotificationReminder,
	"info":       models.NotificationInfo,
}

// toModel refuses notes without a value or with an unreadable date: a missing grade is not
// a zero and an undated one cannot be placed in a trend.
func (n noteWire) toModel() (models.GradeRecord, error) {
	if n.ValeurNote == nil {
		return models.GradeRecord{}, fmt.Errorf("note %q has no valeur_note", string(n.ID))
	}
	date, err := parseTime(n.DateNote)
	if err != nil {
		return models.GradeRecord{}, fmt.Errorf("note %q: %w", string(n.ID), err)
	}
	state := models.GradePending
	if n.Valide {
		state = models.GradeValidated
	}
	return models.GradeRecord{
		ID:             string(n.ID),
		StudentID:      string(n.Student),
		SubjectID:      string(n.Matiere),
		SubjectName:    n.MatiereNom,
		Value:          float64(*n.ValeurNote),
		EvaluationType: evaluationFromWire[n.TypeEvaluation],
		Date:           date,
		State:          state,
	}, nil
}

func noteCreateFrom(s models.GradeSubmission) noteCreateWire {
	body := noteCreateWire{
		Student:        s.StudentID,
		Matiere:        s.SubjectID,
		TypeEvaluation: evaluationToWire[s.EvaluationType],
	}
	if s.Value != nil {
		body.ValeurNote = *s.Value
	}
	if s.Date != nil {
		body.DateNote = s.Date.Format(dateLayout)
	}
	return body
}

func (m matiereWire) toModel() models.Subject {
	name := m.Nom
	if name == "" {
		name = m.NomAscii
	}
	return models.Subject{ID: string(m.ID), Name: name, Coefficient: float64(m.Coefficient)}
}

func (e etudiantWire) toModel() models.Student {
	return models.Student{ID: string(e.ID), FirstName: e.Prenom, LastName: e.Nom, ClassID: string(e.Classe)}
}

func (e exerciceWire) toModel() models.Exercise {
	return models.Exercise{
		ID:          string(e.ID),
		SubjectID:   string(e.Subject),
		SubjectName: e.SubjectNom,
		Title:       e.Titre,
		Difficulty:  models.Difficulty(e.NiveauDifficulte),
	}
}

func (n notificationWire) toModel() (models.Notification, error) {
	kind, ok := notificationTypeFromWire[n.Type]
	if !ok {
		kind = models.NotificationInfo
	}
	created, err := parseTime(n.DateCreation)
	if err != nil {
		return models.Notification{}, fmt.Errorf("notification %q: %w", string(n.ID), err)
	}
	out := models.Notification{
		ID:        string(n.ID),
		Type:      kind,
		Title:     n.Titre,
		Message:   n.Message,
		CreatedAt: created,
		State:     models.Unread,
	}
	if n.EstLu {
		out.State = models.Read
		if n.DateLecture != nil {
			at, err := parseTime(*n.DateLecture)
			if err != nil {
				return models.Notification{}, fmt.Errorf("notification %q: %w", string(n.ID), err)
			}
			out.ReadAt = &at
		}
	}
	return out, nil
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", dateLayout}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", raw)
}

// decodeList accepts a bare array, a paginated {"results": [...]} envelope or a single object.
func decodeList[T any](body []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}
	switch trimmed[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	case '{':
		var envelope struct {
			Results *[]T `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err == nil && envelope.Results != nil {
			return *envelope.Results, nil
		}
		var item T
		if err := json.Unmarshal(trimmed, &item); err != nil {
			return nil, err
		}
		return []T{item}, nil
	default:
		return nil, fmt.Errorf("unexpected payload starting with %q", trimmed[0])
	}
}

// errorMessage pulls a readable message out of a DRF error body.
func errorMessage(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return strings.TrimSpace(string(body))
	}
	for _, key := range []string{"detail", "error", "message"} {
		if msg, ok := payload[key].(string); ok && msg != "" {
			return msg
		}
	}
	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		switch v := payload[key].(type) {
		case []any:
			for _, item := range v {
				parts = append(parts, fmt.Sprintf("%s: %v", key, item))
			}
		case string:
			parts = append(parts, fmt.Sprintf("%s: %s", key, v))
		}
	}
	return strings.Join(parts, "; ")
}
