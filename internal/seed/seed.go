package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/sysu-ecnc-dev/team-former/backend/internal/domain"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/repository"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/teaming"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/utils"
)

// 固定的信息列，其余形如 “名称[类型]=选项1|选项2” 的列是属性列
const (
	headerStudentNumber = "学号"
	headerFullName      = "姓名"
	headerEmail         = "邮箱"
	headerSection       = "班级"
	headerGenders       = "性别"
	headerURM           = "URM"
	headerAvailability  = "时间表"
	headerRequiredWith  = "必须同组"
	headerPreventedWith = "不能同组"
	headerRequestedWith = "希望同组"
)

var attributeHeader = regexp.MustCompile(`^(.+)\[(ordered|multiordered|categorical|multicategorical|timezone)\](?:=(.*))?$`)

var genderNames = map[string]teaming.Gender{
	"女":         teaming.GenderWoman,
	"男":         teaming.GenderMan,
	"非二元":       teaming.GenderNonbinary,
	"woman":     teaming.GenderWoman,
	"man":       teaming.GenderMan,
	"nonbinary": teaming.GenderNonbinary,
}

// 一个单元格中的多个取值使用分号分隔
func splitList(cell string) []string {
	values := make([]string, 0)
	for _, v := range strings.Split(cell, ";") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// ParseRosterCSV 读取问卷导出的 CSV，每行一个学生
func ParseRosterCSV(r io.Reader, blocksPerDay int) (*domain.Roster, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("读取表头失败: %w", err)
	}
	if !slices.Contains(headers, headerStudentNumber) {
		return nil, fmt.Errorf("没有找到%s列", headerStudentNumber)
	}

	roster := &domain.Roster{
		BlocksPerDay: blocksPerDay,
		Attributes:   make([]domain.AttributeDefinition, 0),
		Students:     make([]domain.StudentRecord, 0),
	}
	attributeColumns := make([]string, 0)
	for _, header := range headers {
		match := attributeHeader.FindStringSubmatch(header)
		if match == nil {
			continue
		}
		attr := domain.AttributeDefinition{
			Name: strings.TrimSpace(match[1]),
			Kind: teaming.AttributeKind(match[2]),
		}
		if match[3] != "" {
			attr.Options = strings.Split(match[3], "|")
		}
		roster.Attributes = append(roster.Attributes, attr)
		attributeColumns = append(attributeColumns, header)
	}

	for line := 2; ; line++ {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("读取第 %d 行失败: %w", line, err)
		}

		record := make(map[string]string, len(headers))
		for i, value := range row {
			record[headers[i]] = strings.TrimSpace(value)
		}

		student, err := parseStudent(roster, attributeColumns, record)
		if err != nil {
			return nil, fmt.Errorf("第 %d 行: %w", line, err)
		}
		roster.Students = append(roster.Students, student)
	}

	return roster, nil
}

func parseStudent(roster *domain.Roster, attributeColumns []string, record map[string]string) (domain.StudentRecord, error) {
	student := domain.StudentRecord{
		StudentNumber: record[headerStudentNumber],
		FullName:      record[headerFullName],
		Email:         record[headerEmail],
		Section:       record[headerSection],
		Genders:       make([]teaming.Gender, 0),
		Attributes:    make([][]int, len(roster.Attributes)),
		RequiredWith:  splitList(record[headerRequiredWith]),
		PreventedWith: splitList(record[headerPreventedWith]),
		RequestedWith: splitList(record[headerRequestedWith]),
	}

	for _, name := range splitList(record[headerGenders]) {
		gender, ok := genderNames[strings.ToLower(name)]
		if !ok {
			gender = teaming.GenderUnknown
		}
		student.Genders = append(student.Genders, gender)
	}

	if urm := record[headerURM]; urm != "" {
		switch strings.ToLower(urm) {
		case "是", "1", "true", "yes":
			student.URM = true
		case "否", "0", "false", "no":
		default:
			return student, fmt.Errorf("无法识别的 URM 取值 %q", urm)
		}
	}

	for i, column := range attributeColumns {
		values, err := parseAttribute(&roster.Attributes[i], record[column])
		if err != nil {
			return student, err
		}
		student.Attributes[i] = values
	}

	availability, err := parseAvailability(record[headerAvailability])
	if err != nil {
		return student, err
	}
	student.Availability = availability

	return student, nil
}

// parseAttribute 把选项文字转换成取值下标，空单元格表示未填写
func parseAttribute(attr *domain.AttributeDefinition, cell string) ([]int, error) {
	texts := splitList(cell)
	if len(texts) == 0 {
		return []int{teaming.Unknown}, nil
	}

	if attr.Kind == teaming.KindTimezone {
		offset, err := ParseTimezone(texts[0])
		if err != nil {
			return nil, fmt.Errorf("属性 %s: %w", attr.Name, err)
		}
		return []int{offset}, nil
	}

	values := make([]int, 0, len(texts))
	for _, text := range texts {
		idx := slices.Index(attr.Options, text)
		if idx < 0 {
			return nil, fmt.Errorf("属性 %s 没有选项 %q", attr.Name, text)
		}
		values = append(values, idx)
	}
	slices.Sort(values)
	return slices.Compact(values), nil
}

// ParseTimezone 解析 “UTC+8”、“+05:30”、“-3” 这样的时区，返回相对 UTC 的分钟数
func ParseTimezone(text string) (int, error) {
	s := strings.TrimSpace(strings.ToUpper(text))
	s = strings.TrimPrefix(strings.TrimPrefix(s, "UTC"), "GMT")
	if s == "" {
		return 0, nil
	}

	sign := 1
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		sign = -1
		s = s[1:]
	}

	hoursText, minutesText, hasMinutes := strings.Cut(s, ":")
	hours, err := strconv.Atoi(hoursText)
	if err != nil {
		return 0, fmt.Errorf("无法识别的时区 %q", text)
	}
	minutes := 0
	if hasMinutes {
		if minutes, err = strconv.Atoi(minutesText); err != nil || minutes < 0 || minutes >= 60 {
			return 0, fmt.Errorf("无法识别的时区 %q", text)
		}
	}
	return sign * (hours*60 + minutes), nil
}

// parseAvailability 解析 “1:18-22;3:0-4” 这样的时间表，表示周二第 18~21 块和周四第 0~3 块有空
func parseAvailability(cell string) ([][]int, error) {
	entries := splitList(cell)
	if len(entries) == 0 {
		return nil, nil
	}

	availability := make([][]int, teaming.DaysPerWeek)
	for day := range availability {
		availability[day] = make([]int, 0)
	}
	for _, entry := range entries {
		dayText, rangeText, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("无法识别的时间段 %q", entry)
		}
		day, err := strconv.Atoi(dayText)
		if err != nil || day < 0 || day >= teaming.DaysPerWeek {
			return nil, fmt.Errorf("无法识别的时间段 %q", entry)
		}
		startText, endText, ok := strings.Cut(rangeText, "-")
		if !ok {
			return nil, fmt.Errorf("无法识别的时间段 %q", entry)
		}
		start, err1 := strconv.Atoi(startText)
		end, err2 := strconv.Atoi(endText)
		if err1 != nil || err2 != nil || start < 0 || end <= start {
			return nil, fmt.Errorf("无法识别的时间段 %q", entry)
		}
		for block := start; block < end; block++ {
			availability[day] = append(availability[day], block)
		}
	}

	for day := range availability {
		slices.Sort(availability[day])
		availability[day] = slices.Compact(availability[day])
	}
	return availability, nil
}

// SeedRosterFromCSV 导入 CSV 文件中的名单，名单名称取文件名
func SeedRosterFromCSV(ctx context.Context, r *repository.Repository, path string, blocksPerDay int) (*domain.Roster, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开文件失败: %w", err)
	}
	defer file.Close()

	roster, err := ParseRosterCSV(file, blocksPerDay)
	if err != nil {
		return nil, err
	}
	roster.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	roster.Description = "从 " + filepath.Base(path) + " 导入"

	if err := utils.ValidateRosterAttributes(roster); err != nil {
		return nil, err
	}
	if err := utils.ValidateRosterStudents(roster); err != nil {
		return nil, err
	}

	if err := r.CreateRoster(ctx, roster); err != nil {
		return nil, fmt.Errorf("插入名单失败: %w", err)
	}
	return roster, nil
}
