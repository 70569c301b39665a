// Package mockbackend is a stand-in chat backend that speaks the same
// data-line protocol as the real one. It serves canned answers for local
// development and tests.
package mockbackend

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Answer is one canned reply. It is chosen when the question contains any of
// the Match keywords. Payloads are trimmed on the wire, so fragment
// boundaries must not fall on whitespace.
type Answer struct {
	Match     []string `yaml:"match"`
	Fragments []string `yaml:"fragments"`
	// Status, when set, makes the backend fail with that HTTP status instead.
	Status int `yaml:"status,omitempty"`
}

// Answers is the YAML document loaded by LoadAnswers.
type Answers struct {
	Default []string `yaml:"default"`
	Answers []Answer `yaml:"answers"`
}

// DefaultAnswers is used when no answers file is configured.
func DefaultAnswers() *Answers {
	return &Answers{
		Default: []string{"질문을 확인했어요. 관할 주민센", "터나 복지로에서 자세한 안", "내를 받을 수 있어요."},
		Answers: []Answer{
			{
				Match:     []string{"기초연금"},
				Fragments: []string{"기초연금은 만 65세 이상 어", "르신 중 소득인정액이 선정기준액 이", "하인 분이 신청할 수 있어요."},
			},
			{
				Match:     []string{"등본", "주민등록"},
				Fragments: []string{"주민등록 등본은 정부", "24에서 온라인으로 발급받을 수 있어요."},
			},
			{
				Match:     []string{"보육료", "어린이집"},
				Fragments: []string{"보육료 지원은 복지로 또는 주민센", "터에서 신청해 주세요."},
			},
		},
	}
}

// LoadAnswers reads an answers file.
func LoadAnswers(path string) (*Answers, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var a Answers
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse answers %s: %w", path, err)
	}
	return &a, nil
}

// Lookup returns the first answer matching question, or the default reply.
func (a *Answers) Lookup(question string) Answer {
	for _, ans := range a.Answers {
		for _, kw := range ans.Match {
			if kw != "" && strings.Contains(question, kw) {
				return ans
			}
		}
	}
	return Answer{Fragments: a.Default}
}
