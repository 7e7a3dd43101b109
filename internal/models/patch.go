package models

// UserPatch lists the profile fields a user may change about themselves.
// A nil field leaves the stored value untouched. Password changes are
// handled separately because they need the credential store.
type UserPatch struct {
	Username *string
	Email    *string
	AboutMe  *string
}

// Apply merges the patch into user and reports whether anything changed.
func (p UserPatch) Apply(user *User) bool {
	changed := false
	if p.Username != nil && *p.Username != user.Username {
		user.Username = *p.Username
		changed = true
	}
	if p.Email != nil && *p.Email != user.Email {
		user.Email = *p.Email
		changed = true
	}
	if p.AboutMe != nil && *p.AboutMe != user.AboutMe {
		user.AboutMe = *p.AboutMe
		changed = true
	}
	return changed
}

// PostPatch lists the post fields an author may edit.
type PostPatch struct {
	Title   *string
	Content *string
}

// Apply merges the patch into post and reports whether anything changed.
func (p PostPatch) Apply(post *Post) bool {
	changed := false
	if p.Title != nil && *p.Title != post.Title {
		post.Title = *p.Title
		changed = true
	}
	if p.Content != nil && *p.Content != post.Content {
		post.Content = *p.Content
		changed = true
	}
	return changed
}
