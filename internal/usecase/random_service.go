package usecase

import (
	"fmt"
	"math/rand/v2"
	"time"
)

const (
	DefaultRandomMax = 99
	maxRandomCount   = 20
)

type RandomInput struct {
	Min    int
	Max    int
	Count  int
	Unique bool
}

type RandomResult struct {
	MinValue int   `json:"min_value"`
	MaxValue int   `json:"max_value"`
	Count    int   `json:"count"`
	Unique   bool  `json:"unique"`
	Numbers  []int `json:"numbers"`
}

type RandomService struct {
	intN func(n int) int
}

func NewRandomService() *RandomService {
	return &RandomService{intN: rand.IntN}
}

func (s *RandomService) Generate(input RandomInput) (RandomResult, error) {
	switch {
	case input.Min < 0:
		return RandomResult{}, fmt.Errorf("%w: min_value must be >= 0", ErrUnprocessable)
	case input.Max <= 0:
		return RandomResult{}, fmt.Errorf("%w: max_value must be > 0", ErrUnprocessable)
	case input.Count <= 0 || input.Count > maxRandomCount:
		return RandomResult{}, fmt.Errorf("%w: count must be between 1 and %d", ErrUnprocessable, maxRandomCount)
	case input.Min > input.Max:
		return RandomResult{}, fmt.Errorf("%w: min_value phải nhỏ hơn hoặc bằng max_value", ErrUnprocessable)
	}
	span := input.Max - input.Min + 1
	if input.Unique && input.Count > span {
		return RandomResult{}, fmt.Errorf("%w: không thể tạo đủ số ngẫu nhiên không trùng lặp trong khoảng đã cho", ErrUnprocessable)
	}

	numbers := make([]int, 0, input.Count)
	if input.Unique {
		// partial Fisher-Yates over the range, without materialising it
		swapped := make(map[int]int, input.Count)
		at := func(i int) int {
			if v, ok := swapped[i]; ok {
				return v
			}
			return i
		}
		for i := 0; i < input.Count; i++ {
			j := i + s.intN(span-i)
			vi, vj := at(i), at(j)
			swapped[i], swapped[j] = vj, vi
			numbers = append(numbers, input.Min+vj)
		}
	} else {
		for i := 0; i < input.Count; i++ {
			numbers = append(numbers, input.Min+s.intN(span))
		}
	}

	return RandomResult{
		MinValue: input.Min,
		MaxValue: input.Max,
		Count:    input.Count,
		Unique:   input.Unique,
		Numbers:  numbers,
	}, nil
}

type PrivacyPolicy struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DataUsage   string `json:"data_usage"`
	Limitations string `json:"limitations"`
	Contact     string `json:"contact"`
	LastUpdated string `json:"last_updated"`
}

// NewPrivacyPolicy returns the static policy stamped with today's date.
func NewPrivacyPolicy(today time.Time) PrivacyPolicy {
	return PrivacyPolicy{
		Title: "Chính sách quyền riêng tư",
		Description: "Ứng dụng này chỉ thu thập và hiển thị dữ liệu kết quả xổ số. " +
			"Chúng tôi không yêu cầu, lưu trữ hay xử lý thông tin cá nhân của người dùng.",
		DataUsage: "Dữ liệu được sử dụng duy nhất để phản hồi câu hỏi về kết quả xổ số. " +
			"Không có dữ liệu cá nhân hay hành vi người dùng nào được thu thập.",
		Limitations: "Kết quả xổ số được cung cấp mang tính tham khảo. Người dùng nên đối chiếu với nguồn chính thức " +
			"khi cần xác minh.",
		Contact:     "Liên hệ: clientsupport@pmsa.com.vn",
		LastUpdated: today.Format("2006-01-02"),
	}
}
