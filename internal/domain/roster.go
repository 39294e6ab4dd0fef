package domain

import (
	"time"

	"github.com/sysu-ecnc-dev/team-former/backend/internal/teaming"
)

// AttributeDefinition: 问卷中的一道属性题
type AttributeDefinition struct {
	Name    string                `json:"name"`
	Kind    teaming.AttributeKind `json:"kind"`
	Options []string              `json:"options"` // 取值 i 对应的选项文字，时区属性为空
}

type StudentRecord struct {
	ID            int64            `json:"id"`
	RosterID      int64            `json:"rosterID"`
	StudentNumber string           `json:"studentNumber"` // 学号，名单内唯一
	FullName      string           `json:"fullName"`
	Email         string           `json:"email"`
	Section       string           `json:"section"`
	Genders       []teaming.Gender `json:"genders"`
	URM           bool             `json:"urm"`
	Attributes    [][]int          `json:"attributes"`   // 每个属性的取值，未填写为 -1
	Availability  [][]int          `json:"availability"` // 每天有空的时间块编号，为空表示没有填写时间表
	RequiredWith  []string         `json:"requiredWith"` // 以下三项均为学号
	PreventedWith []string         `json:"preventedWith"`
	RequestedWith []string         `json:"requestedWith"`
}

func (s *StudentRecord) ScheduleUnknown() bool {
	for _, blocks := range s.Availability {
		if len(blocks) > 0 {
			return false
		}
	}
	return true
}

type Roster struct {
	ID           int64                 `json:"id"`
	Name         string                `json:"name"`
	Description  string                `json:"description"`
	BlocksPerDay int                   `json:"blocksPerDay"`
	Attributes   []AttributeDefinition `json:"attributes"`
	Students     []StudentRecord       `json:"students"`
	CreatedBy    int64                 `json:"createdBy"`
	CreatedAt    time.Time             `json:"createdAt"`
	Version      int32                 `json:"-"`
}

// RosterMeta: 列表页使用的名单元数据
type RosterMeta struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	NumStudents int       `json:"numStudents"`
	Sections    []string  `json:"sections"`
	CreatedBy   int64     `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Sections 返回名单中出现过的班级，按首次出现的顺序
func (r *Roster) Sections() []string {
	seen := make(map[string]struct{})
	sections := make([]string, 0)
	for _, student := range r.Students {
		if _, exists := seen[student.Section]; exists {
			continue
		}
		seen[student.Section] = struct{}{}
		sections = append(sections, student.Section)
	}
	return sections
}

// StudentsInSection 返回指定班级的学生，section 为空时返回全部学生
func (r *Roster) StudentsInSection(section string) []StudentRecord {
	if section == "" {
		return r.Students
	}
	students := make([]StudentRecord, 0)
	for _, student := range r.Students {
		if student.Section == section {
			students = append(students, student)
		}
	}
	return students
}
