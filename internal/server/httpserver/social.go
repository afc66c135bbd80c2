package httpserver

import (
	"net/http"

	"github.com/and161185/vidgraph/internal/model"
	"github.com/and161185/vidgraph/internal/service"
)

type contentRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}

func (s *Server) toggleLike(kind model.TargetKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "targetId")
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		res, err := s.Toggles.Like(r.Context(), kind, id)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, res)
	}
}

func (s *Server) likedVideos(w http.ResponseWriter, r *http.Request) {
	p, err := s.Views.LikedVideos(r.Context(), pageRequest(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

func (s *Server) toggleSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "channelId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	res, err := s.Toggles.Subscription(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) subscribers(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "channelId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	p, err := s.Views.Subscribers(r.Context(), id, pageRequest(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

func (s *Server) subscribedChannels(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "subscriberId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	p, err := s.Views.SubscribedChannels(r.Context(), id, pageRequest(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "videoId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	p, err := s.Views.Comments(r.Context(), id, pageRequest(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

func (s *Server) addComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "videoId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req contentRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	c, err := s.Comments.Add(r.Context(), id, req.Content)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, c)
}

func (s *Server) editComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "commentId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req contentRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	c, err := s.Comments.Edit(r.Context(), id, req.Content)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, c)
}

func (s *Server) deleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "commentId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.Comments.Delete(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, empty)
}

func (s *Server) userTweets(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	p, err := s.Views.UserTweets(r.Context(), id, pageRequest(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

func (s *Server) createTweet(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	t, err := s.Tweets.Create(r.Context(), req.Content)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, t)
}

func (s *Server) updateTweet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "tweetId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req contentRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	t, err := s.Tweets.Update(r.Context(), id, req.Content)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, t)
}

func (s *Server) deleteTweet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "tweetId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.Tweets.Delete(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, empty)
}

type playlistRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

type playlistPatchRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

func (s *Server) playlist(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "playlistId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	p, err := s.Views.Playlist(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

func (s *Server) userPlaylists(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	p, err := s.Views.UserPlaylists(r.Context(), id, pageRequest(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

func (s *Server) createPlaylist(w http.ResponseWriter, r *http.Request) {
	var req playlistRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	p, err := s.Playlists.Create(r.Context(), req.Name, req.Description)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, p)
}

func (s *Server) updatePlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "playlistId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req playlistPatchRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	p, err := s.Playlists.Update(r.Context(), id, service.PlaylistPatch{Name: req.Name, Description: req.Description})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

func (s *Server) deletePlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "playlistId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.Playlists.Delete(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, empty)
}

func (s *Server) playlistVideo(add bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		video, err := pathID(r, "videoId")
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		list, err := pathID(r, "playlistId")
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		var p model.Playlist
		if add {
			p, err = s.Playlists.AddVideo(r.Context(), list, video)
		} else {
			p, err = s.Playlists.RemoveVideo(r.Context(), list, video)
		}
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, p)
	}
}

func (s *Server) channelStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.Views.ChannelStats(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

func (s *Server) channelVideos(w http.ResponseWriter, r *http.Request) {
	p, err := s.Views.ChannelVideos(r.Context(), pageRequest(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}
