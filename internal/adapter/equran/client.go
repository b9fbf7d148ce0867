package equran

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/escalopa/tajweed-bot/internal/domain"
)

const source = "corpus"

// Client reads surahs and verses from the equran.id v2 API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ListSurahs lists every surah with its ayah count
func (c *Client) ListSurahs(ctx context.Context) ([]domain.Surah, error) {
	var data []surahResponse
	if err := c.get(ctx, "/surat", &data); err != nil {
		return nil, err
	}

	surahs := make([]domain.Surah, len(data))
	for i := range data {
		surahs[i] = mapSurah(&data[i])
	}

	return surahs, nil
}

// FetchVerseSet fetches a surah with all of its verses
func (c *Client) FetchVerseSet(ctx context.Context, surahNumber int) (*domain.VerseSet, error) {
	if surahNumber < 1 || surahNumber > 114 {
		return nil, fmt.Errorf("surah %d: %w", surahNumber, domain.ErrInvalidSelection)
	}

	var data surahDetailResponse
	if err := c.get(ctx, fmt.Sprintf("/surat/%d", surahNumber), &data); err != nil {
		return nil, err
	}

	set := &domain.VerseSet{
		Surah:     mapSurah(&data.surahResponse),
		Verses:    make([]domain.Verse, len(data.Ayat)),
		AyahCount: data.JumlahAyat,
	}
	for i, a := range data.Ayat {
		set.Verses[i] = domain.Verse{
			SurahNumber:     data.Nomor,
			Number:          a.NomorAyat,
			Text:            a.TeksArab,
			Transliteration: a.TeksLatin,
			Translation:     a.TeksIndonesia,
			AudioURL:        firstAudio(a.Audio),
		}
	}

	return set, nil
}

// get performs a GET and decodes the envelope's data into out.
// Every failure is reported as a corpus FetchError.
func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return domain.NewFetchError(source, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewFetchError(source, fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.NewFetchError(source, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body)))
	}

	var envelope struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return domain.NewFetchError(source, fmt.Errorf("decode response: %w", err))
	}
	if envelope.Code != http.StatusOK {
		return domain.NewFetchError(source, fmt.Errorf("API error (code %d): %s", envelope.Code, envelope.Message))
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return domain.NewFetchError(source, fmt.Errorf("decode data: %w", err))
	}

	return nil
}

type surahResponse struct {
	Nomor      int    `json:"nomor"`
	Nama       string `json:"nama"`
	NamaLatin  string `json:"namaLatin"`
	JumlahAyat int    `json:"jumlahAyat"`
	Arti       string `json:"arti"`
}

type surahDetailResponse struct {
	surahResponse
	Ayat []ayahResponse `json:"ayat"`
}

type ayahResponse struct {
	NomorAyat     int               `json:"nomorAyat"`
	TeksArab      string            `json:"teksArab"`
	TeksLatin     string            `json:"teksLatin"`
	TeksIndonesia string            `json:"teksIndonesia"`
	Audio         map[string]string `json:"audio"`
}

func mapSurah(s *surahResponse) domain.Surah {
	return domain.Surah{
		Number:     s.Nomor,
		Name:       s.NamaLatin,
		ArabicName: s.Nama,
		Meaning:    s.Arti,
		Ayahs:      s.JumlahAyat,
	}
}

// firstAudio picks the lowest numbered reciter, "01" on equran.id
func firstAudio(audio map[string]string) string {
	best := ""
	url := ""
	for k, v := range audio {
		if best == "" || k < best {
			best, url = k, v
		}
	}
	return url
}
