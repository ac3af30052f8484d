package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/SAP-F-2025/learning-assessment/internal/models"
	"github.com/SAP-F-2025/learning-assessment/internal/repositories"
)

const (
	coursesCollection   = "courses"
	modulesCollection   = "modules"
	questionsCollection = "questions"
)

// ContentMongo reads course structure and the question bank published by the
// content service. It never writes.
type ContentMongo struct {
	courses   *mongo.Collection
	modules   *mongo.Collection
	questions *mongo.Collection
}

func NewContentMongo(client *mongo.Client, database string) repositories.ContentRepository {
	db := client.Database(database)
	return &ContentMongo{
		courses:   db.Collection(coursesCollection),
		modules:   db.Collection(modulesCollection),
		questions: db.Collection(questionsCollection),
	}
}

type courseDoc struct {
	ID      interface{}   `bson:"_id"`
	Modules []interface{} `bson:"modules"`
}

type moduleDoc struct {
	ID   interface{} `bson:"_id"`
	Name string      `bson:"name"`
}

type questionIDDoc struct {
	ID interface{} `bson:"_id"`
}

// GetCourseModules returns the modules of a course in course order
func (c *ContentMongo) GetCourseModules(ctx context.Context, courseID string) ([]models.CourseModule, error) {
	var course courseDoc
	err := c.courses.FindOne(ctx, bson.M{"_id": toID(courseID)}).Decode(&course)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	if len(course.Modules) == 0 {
		return []models.CourseModule{}, nil
	}

	cursor, err := c.modules.Find(ctx, bson.M{"_id": bson.M{"$in": course.Modules}})
	if err != nil {
		return nil, fmt.Errorf("failed to get modules: %w", err)
	}
	var docs []moduleDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode modules: %w", err)
	}

	names := make(map[string]string, len(docs))
	for _, d := range docs {
		names[idString(d.ID)] = d.Name
	}

	// keep the order stored on the course, skip dangling refs
	modules := make([]models.CourseModule, 0, len(course.Modules))
	for _, ref := range course.Modules {
		id := idString(ref)
		name, ok := names[id]
		if !ok {
			continue
		}
		modules = append(modules, models.CourseModule{ID: id, Name: name})
	}

	return modules, nil
}

func (c *ContentMongo) SampleActiveQuestions(ctx context.Context, moduleID string, n int) ([]string, error) {
	return c.sample(ctx, bson.M{"moduleId": toID(moduleID), "active": true}, n)
}

func (c *ContentMongo) SampleActiveQuestionsAcross(ctx context.Context, moduleIDs []string, n int) ([]string, error) {
	if len(moduleIDs) == 0 {
		return []string{}, nil
	}
	ids := make([]interface{}, len(moduleIDs))
	for i, id := range moduleIDs {
		ids[i] = toID(id)
	}
	return c.sample(ctx, bson.M{"moduleId": bson.M{"$in": ids}, "active": true}, n)
}

func (c *ContentMongo) sample(ctx context.Context, match bson.M, n int) ([]string, error) {
	if n <= 0 {
		return []string{}, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sample", Value: bson.M{"size": n}}},
		{{Key: "$project", Value: bson.M{"_id": 1}}},
	}

	cursor, err := c.questions.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to sample questions: %w", err)
	}
	var docs []questionIDDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode sampled questions: %w", err)
	}

	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, idString(d.ID))
	}
	return ids, nil
}

// toID converts a hex id into an ObjectID; other ids are matched as strings.
func toID(id string) interface{} {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

func idString(v interface{}) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}
