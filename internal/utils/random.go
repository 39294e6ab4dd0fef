package utils

import (
	"fmt"
	"math/rand"
	"slices"
	"strings"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/domain"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/teaming"
	"golang.org/x/crypto/bcrypt"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "霞", "飞", "玲", "超",
	"华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌", "庆",
	"建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣", "悦",
}

func GenerateRandomChineseName(rng *rand.Rand) string {
	var b strings.Builder
	b.WriteString(commonSurnames[rng.Intn(len(commonSurnames))])
	for i := rng.Intn(2) + 1; i > 0; i-- {
		b.WriteString(commonNameCharacters[rng.Intn(len(commonNameCharacters))])
	}
	return b.String()
}

var roles = []domain.Role{
	domain.RoleAssistant,
	domain.RoleInstructor,
	domain.RoleAdmin,
}

const digits = "0123456789"

// GenerateUsernameFromChineseName 取每个字拼音的前若干个字母，再加上 1~3 位数字
func GenerateUsernameFromChineseName(rng *rand.Rand, chineseName string) string {
	var b strings.Builder
	for _, syllable := range pinyin.LazyConvert(chineseName, nil) {
		b.WriteString(syllable[:rng.Intn(len(syllable))+1])
	}
	for i := rng.Intn(3) + 1; i > 0; i-- {
		b.WriteByte(digits[rng.Intn(len(digits))])
	}
	return b.String()
}

func GenerateRandomUser(rng *rand.Rand, password string, emailDomainName string) (*domain.User, error) {
	fullName := GenerateRandomChineseName(rng)
	username := GenerateUsernameFromChineseName(rng, fullName)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	return &domain.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		FullName:     fullName,
		Email:        username + "@" + emailDomainName,
		Role:         roles[rng.Intn(len(roles))],
	}, nil
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")

func GenerateRandomPassword(length int) string {
	password := make([]rune, length)
	for i := range password {
		password[i] = letters[rand.Intn(len(letters))]
	}
	return string(password)
}

// 随机名单使用的问卷属性
var randomRosterAttributes = []domain.AttributeDefinition{
	{Name: "编程经验", Kind: teaming.KindOrdered, Options: []string{"没有", "一点", "熟练", "精通"}},
	{Name: "专业", Kind: teaming.KindCategorical, Options: []string{"计算机", "软件工程", "网络空间安全", "人工智能", "数学"}},
	{Name: "擅长的工作", Kind: teaming.KindMultiCategorical, Options: []string{"前端", "后端", "测试", "文档", "设计"}},
	{Name: "时区", Kind: teaming.KindTimezone},
}

var timezoneOffsets = []int{-300, 0, 60, 480, 540}

// GenerateRandomRoster 生成 n 名学生的随机名单，学生被平均分到 numSections 个班级中
func GenerateRandomRoster(rng *rand.Rand, n int, numSections int, emailDomainName string) *domain.Roster {
	numSections = max(1, numSections)
	roster := &domain.Roster{
		Name:         fmt.Sprintf("随机名单%03d", rng.Intn(1000)),
		Description:  fmt.Sprintf("%d 名学生，%d 个班级", n, numSections),
		BlocksPerDay: 48,
		Attributes:   randomRosterAttributes,
		Students:     make([]domain.StudentRecord, n),
	}

	for i := range roster.Students {
		fullName := GenerateRandomChineseName(rng)
		student := domain.StudentRecord{
			StudentNumber: fmt.Sprintf("2025%05d", i+1),
			FullName:      fullName,
			Email:         GenerateUsernameFromChineseName(rng, fullName) + "@" + emailDomainName,
			Section:       fmt.Sprintf("%d班", i%numSections+1),
			Genders:       []teaming.Gender{randomGender(rng)},
			URM:           rng.Float64() < 0.15,
			Attributes:    make([][]int, len(roster.Attributes)),
		}

		for attr, definition := range roster.Attributes {
			switch {
			case rng.Float64() < 0.05:
				student.Attributes[attr] = []int{teaming.Unknown}
			case definition.Kind == teaming.KindTimezone:
				student.Attributes[attr] = []int{timezoneOffsets[rng.Intn(len(timezoneOffsets))]}
			case definition.Kind == teaming.KindMultiCategorical || definition.Kind == teaming.KindMultiOrdered:
				student.Attributes[attr] = randomSubset(rng, len(definition.Options))
			default:
				student.Attributes[attr] = []int{rng.Intn(len(definition.Options))}
			}
		}

		// 10% 的学生没有填写时间表
		if rng.Float64() >= 0.1 {
			student.Availability = randomAvailability(rng, roster.BlocksPerDay)
		}

		roster.Students[i] = student
	}

	// 随机加入少量组队要求，只在同一个班级内
	for i := range roster.Students {
		if rng.Float64() >= 0.1 {
			continue
		}
		j := (i + numSections*(rng.Intn(3)+1)) % n
		if j == i {
			continue
		}
		other := roster.Students[j].StudentNumber
		switch rng.Intn(3) {
		case 0:
			roster.Students[i].RequiredWith = append(roster.Students[i].RequiredWith, other)
		case 1:
			roster.Students[i].PreventedWith = append(roster.Students[i].PreventedWith, other)
		default:
			roster.Students[i].RequestedWith = append(roster.Students[i].RequestedWith, other)
		}
	}

	return roster
}

func randomGender(rng *rand.Rand) teaming.Gender {
	switch p := rng.Float64(); {
	case p < 0.45:
		return teaming.GenderWoman
	case p < 0.9:
		return teaming.GenderMan
	case p < 0.95:
		return teaming.GenderNonbinary
	default:
		return teaming.GenderUnknown
	}
}

// randomSubset 返回 [0, n) 的一个非空随机子集，按升序排列
func randomSubset(rng *rand.Rand, n int) []int {
	subset := rng.Perm(n)[:rng.Intn(n)+1]
	slices.Sort(subset)
	return subset
}

// randomAvailability 每天随机生成几段连续的空闲时间
func randomAvailability(rng *rand.Rand, blocksPerDay int) [][]int {
	availability := make([][]int, teaming.DaysPerWeek)
	for day := range availability {
		availability[day] = make([]int, 0)
		for runs := rng.Intn(3); runs > 0; runs-- {
			start := rng.Intn(blocksPerDay)
			length := rng.Intn(8) + 1
			for block := start; block < min(start+length, blocksPerDay); block++ {
				if len(availability[day]) == 0 || availability[day][len(availability[day])-1] < block {
					availability[day] = append(availability[day], block)
				}
			}
		}
	}
	return availability
}
