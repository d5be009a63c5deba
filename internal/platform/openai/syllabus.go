package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type SyllabusChapter struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

const syllabusSystemPrompt = "You are an expert educational content creator specialized in creating comprehensive " +
	"course syllabi. Structure your response as a JSON array without any additional text."

// GenerateSyllabus asks for 8-12 chapters covering topic, each with a short overview
// that later serves as the placeholder content for the chapter.
func (c *Client) GenerateSyllabus(ctx context.Context, topic string) ([]SyllabusChapter, error) {
	topic = strings.TrimSpace(topic)
	user := fmt.Sprintf("Create a detailed syllabus for learning about %q.\n"+
		"Return a JSON array of chapters, where each chapter has a \"title\" and \"content\" field.\n"+
		"The content should be a brief overview of what will be covered in that chapter.\n"+
		"Include 8-12 chapters that cover the topic thoroughly from beginner to advanced concepts.\n"+
		"Format your response ONLY as a valid JSON array, with no text outside the JSON.", topic)

	text, err := c.complete(ctx, "generate_syllabus", syllabusSystemPrompt, user)
	if err != nil {
		return nil, err
	}
	chapters, err := parseSyllabus(text)
	if err != nil {
		return nil, &GenerationError{Op: "generate_syllabus", Err: err}
	}
	return chapters, nil
}

func parseSyllabus(text string) ([]SyllabusChapter, error) {
	text = stripCodeFence(text)
	if !strings.HasPrefix(text, "[") {
		return nil, fmt.Errorf("%w: expected a json array", ErrInvalidFormat)
	}
	var raw []SyllabusChapter
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	out := make([]SyllabusChapter, 0, len(raw))
	for _, ch := range raw {
		ch.Title = strings.TrimSpace(ch.Title)
		ch.Content = strings.TrimSpace(ch.Content)
		if ch.Title == "" {
			continue
		}
		out = append(out, ch)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: syllabus has no chapters", ErrInvalidFormat)
	}
	return out, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
