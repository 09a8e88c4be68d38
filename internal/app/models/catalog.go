package models

// Video is one lesson in the static catalog
type Video struct {
	ID        int    `json:"id" example:"101"`
	ModuleID  int    `json:"moduleId" example:"1"`
	Title     string `json:"title" example:"Partes do violão"`
	Duration  string `json:"duration" example:"12:30"`
	Level     string `json:"level" example:"iniciante"`
	Thumbnail string `json:"thumbnail" example:"/imagens/Sem_titulo.jpg"`
}

// Module groups the videos of one course module
type Module struct {
	ID     int     `json:"id" example:"1"`
	Title  string  `json:"title" example:"Começando do Zero!"`
	Videos []Video `json:"videos"`
}

const (
	LevelBeginner             = "iniciante"
	LevelBeginnerIntermediate = "iniciante-intermediario"
	LevelIntermediate         = "intermediario"
)

func unsplash(topic string) string {
	return "https://source.unsplash.com/random/300x200/?guitar," + topic
}

var catalog = []Module{
	{ID: 1, Title: "Começando do Zero!", Videos: []Video{
		{ID: 101, Title: "Partes do violão", Duration: "12:30", Level: LevelBeginner, Thumbnail: "/imagens/Sem_titulo.jpg"},
		{ID: 102, Title: "Tipos de violão", Duration: "10:15", Level: LevelBeginner, Thumbnail: "/imagens/Postura.jpg"},
		{ID: 103, Title: "Afinação básica", Duration: "15:45", Level: LevelBeginner, Thumbnail: "/imagens/afinando.png"},
		{ID: 104, Title: "Cuidados com o instrumento", Duration: "8:50", Level: LevelBeginner, Thumbnail: "/imagens/diagrama.png"},
		{ID: 105, Title: "História do violão", Duration: "14:20", Level: LevelBeginner, Thumbnail: "/imagens/Sem_titulo.jpg"},
		{ID: 106, Title: "Escolhendo seu primeiro violão", Duration: "11:35", Level: LevelBeginner, Thumbnail: unsplash("buying")},
		{ID: 107, Title: "Acessórios essenciais", Duration: "9:45", Level: LevelBeginner, Thumbnail: unsplash("accessories")},
	}},
	{ID: 2, Title: "Posicionando as Mãos e Postura", Videos: []Video{
		{ID: 201, Title: "Postura correta", Duration: "14:20", Level: LevelBeginner, Thumbnail: unsplash("posture")},
		{ID: 202, Title: "Posição da mão direita", Duration: "12:35", Level: LevelBeginner, Thumbnail: unsplash("hand")},
		{ID: 203, Title: "Posição da mão esquerda", Duration: "15:10", Level: LevelBeginner, Thumbnail: unsplash("chord")},
		{ID: 204, Title: "Exercícios de aquecimento", Duration: "10:10", Level: LevelBeginner, Thumbnail: unsplash("practice")},
		{ID: 205, Title: "Prevenção de lesões", Duration: "13:25", Level: LevelBeginner, Thumbnail: unsplash("health")},
		{ID: 206, Title: "Técnicas de relaxamento", Duration: "11:40", Level: LevelBeginner, Thumbnail: unsplash("relax")},
		{ID: 207, Title: "Exercícios para dedilhado", Duration: "16:15", Level: LevelBeginnerIntermediate, Thumbnail: unsplash("fingers")},
		{ID: 208, Title: "Fortalecimento dos dedos", Duration: "12:50", Level: LevelBeginnerIntermediate, Thumbnail: unsplash("strength")},
	}},
	{ID: 3, Title: "Primeiros Acordes", Videos: []Video{
		{ID: 301, Title: "Acordes maiores", Duration: "18:45", Level: LevelBeginner, Thumbnail: unsplash("chords")},
		{ID: 302, Title: "Acordes menores", Duration: "16:20", Level: LevelBeginner, Thumbnail: unsplash("minor")},
		{ID: 303, Title: "Transição entre acordes", Duration: "15:25", Level: LevelBeginnerIntermediate, Thumbnail: unsplash("transition")},
		{ID: 304, Title: "Primeira música completa", Duration: "20:00", Level: LevelBeginnerIntermediate, Thumbnail: unsplash("song")},
		{ID: 305, Title: "Acordes com sétima", Duration: "17:30", Level: LevelIntermediate, Thumbnail: unsplash("seventh")},
		{ID: 306, Title: "Acordes suspensos", Duration: "14:45", Level: LevelIntermediate, Thumbnail: unsplash("suspended")},
		{ID: 307, Title: "Progressões harmônicas básicas", Duration: "19:15", Level: LevelBeginnerIntermediate, Thumbnail: unsplash("progression")},
		{ID: 308, Title: "Campo harmônico maior", Duration: "22:10", Level: LevelIntermediate, Thumbnail: unsplash("harmony")},
		{ID: 309, Title: "Acordes com pestana", Duration: "16:40", Level: LevelIntermediate, Thumbnail: unsplash("barre")},
	}},
	{ID: 4, Title: "Técnicas de Ritmo", Videos: []Video{
		{ID: 401, Title: "Batidas básicas", Duration: "15:30", Level: LevelBeginner, Thumbnail: unsplash("strumming")},
		{ID: 402, Title: "Ritmos populares", Duration: "18:20", Level: LevelBeginnerIntermediate, Thumbnail: unsplash("rhythm")},
		{ID: 403, Title: "Técnica de palhetada", Duration: "14:15", Level: LevelBeginner, Thumbnail: unsplash("pick")},
		{ID: 404, Title: "Dedilhado simples", Duration: "16:40", Level: LevelBeginnerIntermediate, Thumbnail: unsplash("fingerpicking")},
		{ID: 405, Title: "Ritmos latinos", Duration: "19:25", Level: LevelIntermediate, Thumbnail: unsplash("latin")},
		{ID: 406, Title: "Técnicas percussivas", Duration: "17:10", Level: LevelIntermediate, Thumbnail: unsplash("percussion")},
	}},
}

var videosByID = func() map[int]Video {
	out := make(map[int]Video)
	for _, m := range catalog {
		for _, v := range m.Videos {
			v.ModuleID = m.ID
			out[v.ID] = v
		}
	}
	return out
}()

// Catalog returns a copy of the course modules in display order.
func Catalog() []Module {
	out := make([]Module, len(catalog))
	for i, m := range catalog {
		videos := make([]Video, len(m.Videos))
		for j, v := range m.Videos {
			v.ModuleID = m.ID
			videos[j] = v
		}
		out[i] = Module{ID: m.ID, Title: m.Title, Videos: videos}
	}
	return out
}

// LookupVideo finds a catalog video by id.
func LookupVideo(id int) (Video, bool) {
	v, ok := videosByID[id]
	return v, ok
}
