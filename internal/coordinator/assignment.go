// Stay Middleware - API middleware between Stay clients and the Strapi content service
// SPDX-License-Identifier: AGPL-3.0-or-later

package coordinator

import (
	"context"
	"sync"
	"sync/atomic"

	json "github.com/goccy/go-json"

	"github.com/stayapp/stay-middleware/internal/logging"
	"github.com/stayapp/stay-middleware/internal/strapi"
)

// AssignResult aggregates a class-wide assignment: how many students the
// classroom has, and how many user-topics were created versus refreshed.
type AssignResult struct {
	Total   int
	Created int
	Updated int
}

// studentOutcome is one student's result in the assignment fold.
type studentOutcome int

const (
	outcomeSkipped studentOutcome = iota
	outcomeCreated
	outcomeUpdated
)

// classUserTopic is the slice of a user-topic record the teacher
// workflows read.
type classUserTopic struct {
	strapi.Record
	MemoryLocation      string `json:"memoryLocation"`
	TeacherInstructions string `json:"teacherInstructions"`
}

// ClassStudents fetches a classroom's enrolled student profiles,
// projected to identifiers. A missing classroom surfaces as the
// upstream 404.
func (c *Coordinator) ClassStudents(ctx context.Context, classID strapi.ID) ([]strapi.Record, error) {
	query := strapi.NewQuery().PopulateFields("students", "id", "documentId")

	raw, err := c.content.Get(ctx, "/api/classrooms/"+classID.String(), query.Values())
	if err != nil {
		return nil, err
	}

	var env struct {
		Data struct {
			Students []strapi.Record `json:"students"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	return env.Data.Students, nil
}

// AssignTopicToClass links a topic to a classroom and upserts a
// user-topic plus a same-day study session for every enrolled student.
//
// The per-student work is a sequential fold with isolated failures: one
// student's upstream error is logged and skipped, never aborting the
// rest. The aggregate counts are the only place failures show up.
func (c *Coordinator) AssignTopicToClass(ctx context.Context, classID, topicID strapi.ID, instructions string) (AssignResult, error) {
	students, err := c.ClassStudents(ctx, classID)
	if err != nil {
		return AssignResult{}, err
	}

	// Linking the topic to the classroom is best effort: assignment of
	// the students proceeds even when this write fails.
	link := strapi.Payload{Data: map[string]any{
		"topics": map[string]any{"connect": []strapi.ID{topicID}},
	}}
	if _, err := c.content.Put(ctx, "/api/classrooms/"+classID.String(), link); err != nil {
		log := logging.Ctx(ctx)
		log.Warn().Err(err).
			Str("classroom", classID.String()).
			Str("topic", topicID.String()).
			Msg("failed to link topic to classroom")
	}

	result := AssignResult{Total: len(students)}
	today := c.today()

	for _, student := range students {
		outcome := c.assignStudent(ctx, student, topicID, instructions, today)
		switch outcome {
		case outcomeCreated:
			result.Created++
		case outcomeUpdated:
			result.Updated++
		case outcomeSkipped:
		}
	}
	return result, nil
}

// assignStudent upserts one student's user-topic and ensures a session
// exists for today. Any upstream failure is logged and reported as a
// skip.
func (c *Coordinator) assignStudent(ctx context.Context, student strapi.Record, topicID strapi.ID, instructions, today string) studentOutcome {
	log := logging.Ctx(ctx).With().
		Str("profile", student.DocumentID).
		Str("topic", topicID.String()).
		Logger()

	query := strapi.NewQuery().
		Eq("topic.documentId", topicID.String()).
		Eq("profile.documentId", student.DocumentID).
		Limit(1)

	raw, err := c.content.Get(strapi.WithQuiet404(ctx), "/api/user-topics", query.Values())
	if err != nil {
		log.Warn().Err(err).Msg("user-topic lookup failed, student skipped")
		return outcomeSkipped
	}

	var env struct {
		Data []classUserTopic `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Warn().Err(err).Msg("user-topic lookup unreadable, student skipped")
		return outcomeSkipped
	}

	var userTopicDoc string
	var outcome studentOutcome

	if len(env.Data) > 0 {
		existing := env.Data[0]
		update := strapi.Payload{Data: map[string]any{
			"nextSession":         today,
			"teacherInstructions": instructions,
		}}
		if _, err := c.content.Put(ctx, "/api/user-topics/"+existing.DocumentID, update); err != nil {
			log.Warn().Err(err).Msg("user-topic update failed, student skipped")
			return outcomeSkipped
		}
		userTopicDoc = existing.DocumentID
		outcome = outcomeUpdated
	} else {
		create := strapi.Payload{Data: map[string]any{
			"profile":             student.DocumentID,
			"topic":               topicID,
			"nextSession":         today,
			"memoryLocation":      "New",
			"revisionsDone":       0,
			"timeRemaining":       0,
			"timeTotal":           0,
			"teacherInstructions": instructions,
		}}
		created, err := c.content.Post(ctx, "/api/user-topics", create)
		if err != nil {
			log.Warn().Err(err).Msg("user-topic create failed, student skipped")
			return outcomeSkipped
		}
		var createdEnv struct {
			Data strapi.Record `json:"data"`
		}
		if err := json.Unmarshal(created, &createdEnv); err != nil {
			log.Warn().Err(err).Msg("user-topic create response unreadable, student skipped")
			return outcomeSkipped
		}
		userTopicDoc = createdEnv.Data.DocumentID
		outcome = outcomeCreated
	}

	// The session for today is an upsert of its own. A failure here does
	// not demote the student's counted outcome; the user-topic write
	// already landed.
	if err := c.ensureTodaySession(ctx, userTopicDoc, topicID, today); err != nil {
		log.Warn().Err(err).Msg("failed to ensure today's session")
	}
	return outcome
}

// ensureTodaySession creates today's study session for the user-topic
// unless one already exists.
func (c *Coordinator) ensureTodaySession(ctx context.Context, userTopicDoc string, topicID strapi.ID, today string) error {
	query := strapi.NewQuery().
		Eq("user_topic.documentId", userTopicDoc).
		Eq("scheduledFor", today).
		Limit(1)

	raw, err := c.content.Get(strapi.WithQuiet404(ctx), "/api/study-sessions", query.Values())
	if err != nil {
		return err
	}
	entries, err := strapi.DecodeList(raw)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return nil
	}

	create := strapi.Payload{Data: map[string]any{
		"user_topic":           userTopicDoc,
		"scheduledFor":         today,
		"stayTopicId":          topicID,
		"isPaused":             false,
		"timeAllotted":         0,
		"timeTakenForActivity": 0,
		"timeTakenForRevision": 0,
		"difficultyLevel":      "Medium",
	}}
	_, err = c.content.Post(ctx, "/api/study-sessions", create)
	return err
}

// classTopicUserTopics fetches the user-topics linking a topic to any of
// the given student profiles.
func (c *Coordinator) classTopicUserTopics(ctx context.Context, topicID strapi.ID, students []strapi.Record) ([]classUserTopic, error) {
	docIDs := make([]string, 0, len(students))
	for _, s := range students {
		docIDs = append(docIDs, s.DocumentID)
	}

	query := strapi.NewQuery().
		Eq("topic.documentId", topicID.String()).
		In("profile.documentId", docIDs).
		Fields("memoryLocation", "teacherInstructions").
		Limit(5000)

	raw, err := c.content.Get(ctx, "/api/user-topics", query.Values())
	if err != nil {
		return nil, err
	}

	var env struct {
		Data []classUserTopic `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// memoryLocations are the histogram buckets always present in topic
// stats, even at zero.
var memoryLocations = []string{"New", "Review", "Short-term", "Long-term", "Transition"}

// TopicStats summarizes a topic's progress across a classroom: a
// memory-location histogram over the assigned students plus the current
// instructions.
type TopicStats struct {
	Stats               map[string]int
	TotalStudents       int
	AssignedCount       int
	TeacherInstructions string
}

// ClassTopicStats builds the per-classroom topic progress summary.
func (c *Coordinator) ClassTopicStats(ctx context.Context, classID, topicID strapi.ID) (TopicStats, error) {
	students, err := c.ClassStudents(ctx, classID)
	if err != nil {
		return TopicStats{}, err
	}

	stats := TopicStats{
		Stats:         make(map[string]int, len(memoryLocations)),
		TotalStudents: len(students),
	}
	for _, loc := range memoryLocations {
		stats.Stats[loc] = 0
	}
	if len(students) == 0 {
		return stats, nil
	}

	userTopics, err := c.classTopicUserTopics(ctx, topicID, students)
	if err != nil {
		return TopicStats{}, err
	}

	stats.AssignedCount = len(userTopics)
	for _, ut := range userTopics {
		loc := ut.MemoryLocation
		if loc == "" {
			loc = "New"
		}
		stats.Stats[loc]++
		if stats.TeacherInstructions == "" && ut.TeacherInstructions != "" {
			stats.TeacherInstructions = ut.TeacherInstructions
		}
	}
	return stats, nil
}

// UpdateClassInstructions rewrites the teacher instructions on every
// user-topic linking the topic to a student of the classroom. Updates
// run concurrently; each record is independent upstream, and one failed
// write only drops out of the returned count.
func (c *Coordinator) UpdateClassInstructions(ctx context.Context, classID, topicID strapi.ID, instructions string) (int, error) {
	students, err := c.ClassStudents(ctx, classID)
	if err != nil {
		return 0, err
	}
	if len(students) == 0 {
		return 0, nil
	}

	userTopics, err := c.classTopicUserTopics(ctx, topicID, students)
	if err != nil {
		return 0, err
	}

	var updated atomic.Int64
	var wg sync.WaitGroup
	for _, ut := range userTopics {
		wg.Add(1)
		go func(doc string) {
			defer wg.Done()
			payload := strapi.Payload{Data: map[string]any{
				"teacherInstructions": instructions,
			}}
			if _, err := c.content.Put(ctx, "/api/user-topics/"+doc, payload); err != nil {
				log := logging.Ctx(ctx)
				log.Warn().Err(err).
					Str("user_topic", doc).
					Msg("instruction update failed")
				return
			}
			updated.Add(1)
		}(ut.DocumentID)
	}
	wg.Wait()

	return int(updated.Load()), nil
}
